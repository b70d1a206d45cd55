package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/mesa/internal/order/domain"
)

var orderBodyKeys = map[string]bool{
	"table_id":    true,
	"status":      true,
	"order_items": true,
}

func (s *Server) CreateOrder(c *gin.Context) {
	var req orderdomain.CreateRequest
	extras, err := decodeBody(c, &req, orderBodyKeys)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Attributes = extras

	resp, err := s.orderSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) UpdateOrder(c *gin.Context) {
	var req orderdomain.UpdateRequest
	extras, err := decodeBody(c, &req, orderBodyKeys)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Attributes = extras

	resp, err := s.orderSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteOrder(c *gin.Context) {
	if err := s.orderSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetOrder(c *gin.Context) {
	resp, err := s.orderSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListOrders(c *gin.Context) {
	params := parseListParams(c)
	resp, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListRequest{
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
	c.JSON(http.StatusOK, gin.H{"orders": resp})
}
