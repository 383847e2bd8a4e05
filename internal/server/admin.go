package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/smallbiznis/bookingsync/internal/booking/domain"
	scheduledomain "github.com/smallbiznis/bookingsync/internal/schedule/domain"
	"go.uber.org/zap"
)

const defaultBookingListLimit = 500

type triggerSyncRequest struct {
	HorizonDays *int `json:"horizon_days"`
}

// TriggerSync runs a full reconciliation in the request.
func (s *Server) TriggerSync(c *gin.Context) {
	var req triggerSyncRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	horizon, err := s.horizonFrom(c, req.HorizonDays)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.syncSvc.SyncAll(c.Request.Context(), horizon)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("admin.sync.completed",
		zap.Int("horizon_days", horizon),
		zap.Int("processed", result.SubscriptionsProcessed),
		zap.Int("errors", result.ErrorsCount),
	)
	c.JSON(http.StatusOK, result)
}

func (s *Server) SyncSubscription(c *gin.Context) {
	horizon, err := s.horizonFrom(c, nil)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out, err := s.syncSvc.SyncSubscription(c.Request.Context(), c.Param("id"), horizon)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) ListIncompleteSubscriptions(c *gin.Context) {
	ctx := c.Request.Context()

	subs, err := s.source.ListActive(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	incomplete, err := s.scheduleSv.FindIncomplete(ctx, subs)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if incomplete == nil {
		incomplete = []scheduledomain.Incomplete{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  incomplete,
		"count": len(incomplete),
	})
}

// SaveSubscriptionSchedule stores a manual schedule and resyncs the
// subscription. A failed metadata push keeps the local row and is reported
// as a warning.
func (s *Server) SaveSubscriptionSchedule(c *gin.Context) {
	ctx := c.Request.Context()

	var entry scheduledomain.ManualEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	entry.SubscriptionID = strings.TrimSpace(c.Param("id"))

	saved, err := s.scheduleSv.SaveManualEntry(ctx, entry)
	warnings := []string{}
	if err != nil {
		if !errors.Is(err, scheduledomain.ErrMetadataPush) {
			AbortWithError(c, err)
			return
		}
		s.log.Warn("admin.schedule.push_failed",
			zap.String("subscription_id", entry.SubscriptionID),
			zap.Error(err),
		)
		warnings = append(warnings, scheduledomain.ErrMetadataPush.Error())
	}
	s.obsMetrics.RecordManualEntry(ctx, entry.PushToSource && err == nil)

	out, syncErr := s.syncSvc.SyncSubscription(ctx, entry.SubscriptionID, s.tuning.Get().HorizonDays)
	if syncErr != nil {
		s.log.Warn("admin.schedule.resync_failed",
			zap.String("subscription_id", entry.SubscriptionID),
			zap.Error(syncErr),
		)
		warnings = append(warnings, "resync_failed")
	}

	c.JSON(http.StatusOK, gin.H{
		"schedule": saved,
		"outcome":  out,
		"warnings": warnings,
	})
}

func (s *Server) ListSubscriptionBookings(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	loc := s.cfg.Location()

	from, err := parseOptionalTime(c.Query("from"), false, loc)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_time", "from must be RFC3339 or YYYY-MM-DD"))
		return
	}
	to, err := parseOptionalTime(c.Query("to"), true, loc)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_time", "to must be RFC3339 or YYYY-MM-DD"))
		return
	}
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil || (limit != nil && *limit <= 0) {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a positive integer"))
		return
	}

	filter := bookingdomain.ListFilter{
		SubscriptionID: id,
		Source:         bookingdomain.SourceSubscription,
		From:           from,
		To:             to,
		Limit:          defaultBookingListLimit,
	}
	if limit != nil {
		filter.Limit = *limit
	}

	items, err := s.bookings.List(c.Request.Context(), s.db, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if items == nil {
		items = []bookingdomain.Booking{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  items,
		"count": len(items),
	})
}

// horizonFrom prefers the body value, then ?horizon_days, then the
// configured default.
func (s *Server) horizonFrom(c *gin.Context, fromBody *int) (int, error) {
	horizon := s.tuning.Get().HorizonDays
	if fromBody != nil {
		horizon = *fromBody
	} else {
		parsed, err := parseOptionalInt(c.Query("horizon_days"))
		if err != nil {
			return 0, newValidationError("horizon_days", "invalid_horizon", "horizon_days must be an integer")
		}
		if parsed != nil {
			horizon = *parsed
		}
	}
	if !validHorizon(horizon) {
		return 0, newValidationError("horizon_days", "invalid_horizon", "horizon_days must be between 0 and 730")
	}
	return horizon, nil
}
