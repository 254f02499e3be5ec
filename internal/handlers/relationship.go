package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.waggle/internal/auth"
	"uk.co.dudmesh.waggle/internal/model"
)

type RelationshipService interface {
	ToggleFollow(actorID, targetID model.UserID) (bool, error)
	ToggleLike(actorID model.UserID, entityID string) (bool, error)
	ToggleBookmark(actorID model.UserID, entityID string) (bool, error)
	IsFollowing(actorID, targetID model.UserID) (bool, error)
}

type toggleResponse struct {
	Active bool `json:"active"`
}

func ToggleFollow(relationshipService RelationshipService) echo.HandlerFunc {
	return func(c echo.Context) error {
		active, err := relationshipService.ToggleFollow(auth.UserID(c), model.UserID(c.Param("userID")))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, toggleResponse{Active: active})
	}
}

func FollowState(relationshipService RelationshipService) echo.HandlerFunc {
	return func(c echo.Context) error {
		active, err := relationshipService.IsFollowing(auth.UserID(c), model.UserID(c.Param("userID")))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, toggleResponse{Active: active})
	}
}

func ToggleLike(relationshipService RelationshipService) echo.HandlerFunc {
	return func(c echo.Context) error {
		active, err := relationshipService.ToggleLike(auth.UserID(c), c.Param("entityID"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, toggleResponse{Active: active})
	}
}

func ToggleBookmark(relationshipService RelationshipService) echo.HandlerFunc {
	return func(c echo.Context) error {
		active, err := relationshipService.ToggleBookmark(auth.UserID(c), c.Param("entityID"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, toggleResponse{Active: active})
	}
}
