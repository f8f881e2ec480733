// Package review exposes the manual review queue over HTTP.
package review

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/reviewqueue"
	"github.com/Ramsey-B/fern/pkg/appctx"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Register registers review queue routes
func Register(g *echo.Group) {
	g.GET("", ListReviewItems)
	g.GET("/:id", GetReviewItem)
	g.POST("/:id/approve", ApproveReviewItem)
	g.POST("/:id/reject", RejectReviewItem)
	g.POST("/:id/defer", DeferReviewItem)
}

// ListReviewItems lists review items, pending first by default
func ListReviewItems(c echo.Context) error {
	ctx := c.Request().Context()

	status := c.QueryParam("status")
	if status == "" {
		status = models.ReviewStatusPending
	} else if status == "all" {
		status = ""
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	ctx, repo, err := ectoinject.GetContext[*reviewqueue.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	items, err := repo.List(ctx, status, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, items)
}

// GetReviewItem gets a review item by ID
func GetReviewItem(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*reviewqueue.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	item, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "review item not found")
	}

	return c.JSON(http.StatusOK, item)
}

// ApproveReviewItem confirms the suggested match
func ApproveReviewItem(c echo.Context) error {
	return resolveItem(c, models.ReviewStatusApproved)
}

// RejectReviewItem rejects the suggested match
func RejectReviewItem(c echo.Context) error {
	return resolveItem(c, models.ReviewStatusRejected)
}

// DeferReviewItem postpones the decision
func DeferReviewItem(c echo.Context) error {
	return resolveItem(c, models.ReviewStatusDeferred)
}

func resolveItem(c echo.Context, status string) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	resolvedBy := appctx.GetUserID(ctx)
	if resolvedBy == "" {
		resolvedBy = "unknown"
	}

	ctx, repo, err := ectoinject.GetContext[*reviewqueue.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	item, err := repo.Resolve(ctx, id, status, resolvedBy)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, item)
}
