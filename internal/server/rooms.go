package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	roomdomain "github.com/smallbiznis/mesa/internal/room/domain"
)

var roomBodyKeys = map[string]bool{
	"name": true,
}

func (s *Server) CreateRoom(c *gin.Context) {
	var req roomdomain.CreateRequest
	extras, err := decodeBody(c, &req, roomBodyKeys)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Attributes = extras

	resp, err := s.roomSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) UpdateRoom(c *gin.Context) {
	var req roomdomain.UpdateRequest
	extras, err := decodeBody(c, &req, roomBodyKeys)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Attributes = extras

	resp, err := s.roomSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteRoom(c *gin.Context) {
	if err := s.roomSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetRoom(c *gin.Context) {
	resp, err := s.roomSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListRooms(c *gin.Context) {
	params := parseListParams(c)
	resp, err := s.roomSvc.List(c.Request.Context(), roomdomain.ListRequest{
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
	c.JSON(http.StatusOK, gin.H{"rooms": resp})
}
