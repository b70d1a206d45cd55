package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	tabledomain "github.com/smallbiznis/mesa/internal/table/domain"
)

var tableBodyKeys = map[string]bool{
	"name":    true,
	"room_id": true,
	"x_start": true,
	"y_start": true,
	"width":   true,
	"height":  true,
	"seats":   true,
}

func (s *Server) CreateTable(c *gin.Context) {
	var req tabledomain.CreateRequest
	extras, err := decodeBody(c, &req, tableBodyKeys)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Attributes = extras

	resp, err := s.tableSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) UpdateTable(c *gin.Context) {
	var req tabledomain.UpdateRequest
	extras, err := decodeBody(c, &req, tableBodyKeys)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Attributes = extras

	resp, err := s.tableSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteTable(c *gin.Context) {
	if err := s.tableSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetTable(c *gin.Context) {
	resp, err := s.tableSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListTables(c *gin.Context) {
	params := parseListParams(c)
	resp, err := s.tableSvc.List(c.Request.Context(), tabledomain.ListRequest{
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
	c.JSON(http.StatusOK, gin.H{"tables": resp})
}
