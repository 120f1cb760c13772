package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/zulandar/sightline/internal/models"
	"github.com/zulandar/sightline/internal/replay"
	"github.com/zulandar/sightline/internal/store"
)

const defaultListLimit = 50

// listQuery holds the query filters of the request listing.
type listQuery struct {
	Model          string `form:"model"`
	Status         string `form:"status"`
	ExcludeReplays bool   `form:"exclude_replays"`
	Limit          int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// replayBody is the optional JSON body of a replay call.
type replayBody struct {
	ModelOverride   string `json:"model_override"`
	RouteIDOverride string `json:"route_id_override"`
}

func registerRoutes(router *gin.Engine, replayer Replayer, requests RequestReader) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":                "ok",
			"placeholder_fallbacks": replay.PlaceholderFallbacks(),
		})
	})

	api := router.Group("/api/v1/environments/:env/requests")
	api.GET("", handleListRequests(requests))
	api.GET("/:id", handleGetRequest(requests))
	api.GET("/:id/replays", handleListReplays(requests))
	api.POST("/:id/replay", handleReplay(replayer))
}

func handleReplay(replayer Replayer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := requestID(c)
		if !ok {
			return
		}
		var body replayBody
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(c, http.StatusBadRequest, "bad_request", "invalid body: "+err.Error())
			return
		}

		res, err := replayer.Replay(c.Request.Context(), replay.Request{
			OriginalID:      id,
			EnvironmentID:   c.Param("env"),
			ModelOverride:   body.ModelOverride,
			RouteIDOverride: body.RouteIDOverride,
		})
		if err != nil {
			writeReplayError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func handleListRequests(requests RequestReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q listQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			writeError(c, http.StatusBadRequest, "bad_request", "invalid query: "+err.Error())
			return
		}
		if q.Limit == 0 {
			q.Limit = defaultListLimit
		}

		recs, err := requests.List(c.Request.Context(), store.ListFilters{
			EnvironmentID:  c.Param("env"),
			Model:          q.Model,
			Status:         q.Status,
			ExcludeReplays: q.ExcludeReplays,
			Limit:          q.Limit,
		})
		if err != nil {
			writeStoreError(c, err)
			return
		}
		if recs == nil {
			recs = []models.RequestRecord{}
		}
		c.JSON(http.StatusOK, gin.H{"requests": recs})
	}
}

func handleGetRequest(requests RequestReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := requestID(c)
		if !ok {
			return
		}
		rec, err := requests.Get(c.Request.Context(), id, c.Param("env"))
		if err != nil {
			writeStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func handleListReplays(requests RequestReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := requestID(c)
		if !ok {
			return
		}
		env := c.Param("env")
		if _, err := requests.Get(c.Request.Context(), id, env); err != nil {
			writeStoreError(c, err)
			return
		}
		replays, err := requests.ListReplays(c.Request.Context(), id, env)
		if err != nil {
			writeStoreError(c, err)
			return
		}
		if replays == nil {
			replays = []models.RequestRecord{}
		}
		c.JSON(http.StatusOK, gin.H{"replays": replays})
	}
}

// requestID parses the :id path parameter, writing a 400 on failure.
func requestID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		writeError(c, http.StatusBadRequest, "bad_request", "request id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

func writeReplayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, replay.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, replay.ErrBadRequest):
		writeError(c, http.StatusBadRequest, "bad_request", err.Error())
	default:
		writeInternal(c, err)
	}
}

func writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(c, http.StatusNotFound, "not_found", err.Error())
		return
	}
	writeInternal(c, err)
}

// writeInternal hides storage details from the caller; they are logged.
func writeInternal(c *gin.Context, err error) {
	log.WithFields(log.Fields{
		"request_id": c.GetString("request_id"),
		"event":      "internal_error",
		"error":      err.Error(),
	}).Error("Request failed")
	writeError(c, http.StatusInternalServerError, "internal", "internal error")
}

func writeError(c *gin.Context, status int, typ, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"type": typ, "message": msg},
	})
}
