package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/anc/internal/platform/auth"
)

const apiPrefix = "/api/v1/"

// ActivityEntry is one user action against the API.
type ActivityEntry struct {
	UserID     string
	UserName   string
	Action     string // read, create, update, delete
	Resource   string
	ResourceID string
	Method     string
	Path       string
	StatusCode int
	IPAddress  string
	RequestID  string
	Timestamp  time.Time
}

// ActivityRecorder persists activity entries.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, entry ActivityEntry) error
}

// ActivityRecorderFunc adapts a function to ActivityRecorder.
type ActivityRecorderFunc func(ctx context.Context, entry ActivityEntry) error

func (f ActivityRecorderFunc) RecordActivity(ctx context.Context, entry ActivityEntry) error {
	return f(ctx, entry)
}

// Activity records each /api/v1/ request after the handler ran. Reads are
// only recorded when readsToo is set. Recorder failures are logged and
// never change the response.
func Activity(logger zerolog.Logger, recorder ActivityRecorder, readsToo bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !strings.HasPrefix(path, apiPrefix) {
				return next(c)
			}

			err := next(c)

			action := methodToAction(req.Method)
			if action == "read" && !readsToo {
				return err
			}

			ctx := req.Context()
			resource, id := resourceFromPath(path)
			entry := ActivityEntry{
				UserID:     auth.UserIDFromContext(ctx),
				UserName:   auth.UserNameFromContext(ctx),
				Action:     action,
				Resource:   resource,
				ResourceID: id,
				Method:     req.Method,
				Path:       path,
				StatusCode: statusFor(c, err),
				IPAddress:  c.RealIP(),
				Timestamp:  time.Now().UTC(),
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			if recorder != nil {
				// The request context may already be cancelled.
				if recErr := recorder.RecordActivity(context.WithoutCancel(ctx), entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record activity")
				}
			}

			logger.Info().
				Str("type", "activity").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("action", entry.Action).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Int("status", entry.StatusCode).
				Msg("user_activity")

			return err
		}
	}
}

func methodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceFromPath splits /api/v1/patients/<id>/visits into the first
// segment and the first UUID found after it.
//
//	/api/v1/patients             -> patients, ""
//	/api/v1/patients/<id>        -> patients, <id>
//	/api/v1/visits/<id>          -> visits, <id>
//	/api/v1/broadcast/send       -> broadcast, ""
func resourceFromPath(path string) (string, string) {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, apiPrefix), "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "unknown", ""
	}
	for _, s := range segments[1:] {
		if _, err := uuid.Parse(s); err == nil {
			return segments[0], s
		}
	}
	return segments[0], ""
}

// statusFor reports the status the client will see. The handler error has
// not been rendered yet when the Logger middleware sits outside this one.
func statusFor(c echo.Context, err error) int {
	if err == nil {
		if s := c.Response().Status; s != 0 {
			return s
		}
		return http.StatusOK
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if c.Response().Committed {
		return c.Response().Status
	}
	return http.StatusInternalServerError
}
