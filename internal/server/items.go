package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	itemdomain "github.com/smallbiznis/mesa/internal/item/domain"
)

// Native item payload keys; anything else is treated as a custom-field entry.
var itemBodyKeys = map[string]bool{
	"name":         true,
	"description":  true,
	"price":        true,
	"allergens":    true,
	"item_type_id": true,
	"tag_ids":      true,
}

func (s *Server) CreateItem(c *gin.Context) {
	var req itemdomain.CreateRequest
	extras, err := decodeBody(c, &req, itemBodyKeys)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Attributes = extras

	resp, err := s.itemSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) UpdateItem(c *gin.Context) {
	var req itemdomain.UpdateRequest
	extras, err := decodeBody(c, &req, itemBodyKeys)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Attributes = extras

	resp, err := s.itemSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteItem(c *gin.Context) {
	if err := s.itemSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetItem(c *gin.Context) {
	resp, err := s.itemSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListItems(c *gin.Context) {
	params := parseListParams(c)
	resp, err := s.itemSvc.List(c.Request.Context(), itemdomain.ListRequest{
		Filters: params.Filters,
		SortBy:  params.SortBy,
		OrderBy: params.OrderBy,
		Page:    params.Page,
		PerPage: params.PerPage,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": resp})
}

func (s *Server) CreateItemType(c *gin.Context) {
	var req itemdomain.CreateTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.itemSvc.CreateType(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListItemTypes(c *gin.Context) {
	resp, err := s.itemSvc.ListTypes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item_types": resp})
}

func (s *Server) CreateTag(c *gin.Context) {
	var req itemdomain.CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.itemSvc.CreateTag(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListTags(c *gin.Context) {
	resp, err := s.itemSvc.ListTags(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": resp})
}
