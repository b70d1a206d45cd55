package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	cfdomain "github.com/smallbiznis/mesa/internal/customfield/domain"
)

func (s *Server) CreateCustomField(c *gin.Context) {
	var req cfdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.fieldSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) UpdateCustomField(c *gin.Context) {
	var req cfdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.fieldSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteCustomField(c *gin.Context) {
	if err := s.fieldSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetCustomField(c *gin.Context) {
	resp, err := s.fieldSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListCustomFields(c *gin.Context) {
	resp, err := s.fieldSvc.List(c.Request.Context(), cfdomain.ListRequest{
		TargetModel: c.Query("targetModel"),
		FieldType:   c.Query("fieldType"),
		SortBy:      c.Query("sortBy"),
		OrderBy:     c.Query("orderBy"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"custom_fields": resp})
}
