package history

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"PRelay/logger"
	"PRelay/service/relay"
	"PRelay/tools/errs"
)

const maxQueryLimit = 200

// RegisterRoutes exposes the archive read surface.
func RegisterRoutes(r gin.IRoutes, store *Store) {
	r.GET("/rooms/:roomId/messages", func(c *gin.Context) {
		roomID := c.Param("roomId")
		limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"code": errs.ArgsError, "msg": "bad limit"})
			return
		}
		if limit > maxQueryLimit {
			limit = maxQueryLimit
		}

		var recs []MessageRecord
		if q := c.Query("q"); q != "" {
			recs, err = store.Search(c.Request.Context(), roomID, q, limit)
		} else {
			recs, err = store.Recent(c.Request.Context(), roomID, limit)
		}
		if err != nil {
			logger.Errorf("[history] query room=%s: %v", roomID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"code": errs.BackendError, "msg": "query failed"})
			return
		}

		msgs := make([]relay.ChatMessage, 0, len(recs))
		for _, rec := range recs {
			msgs = append(msgs, rec.ToChatMessage())
		}
		c.JSON(http.StatusOK, gin.H{
			"roomId":   roomID,
			"count":    len(msgs),
			"messages": msgs,
		})
	})
}
