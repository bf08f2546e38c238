package api

import (
	"errors"
	"net/http"

	"salonbook/internal/database"
	"salonbook/internal/export"
	"salonbook/internal/schedule"
	"salonbook/internal/service"

	"google.golang.org/grpc/codes"
)

var errBadDate = errors.New("invalid date format; expected YYYY-MM-DD")

// statusOf maps domain errors to the HTTP status and gRPC code sent to clients.
func statusOf(err error) (int, codes.Code) {
	switch {
	case errors.Is(err, database.ErrSlotTaken),
		errors.Is(err, service.ErrNoAvailableStart),
		errors.Is(err, database.ErrConcurrentModification):
		return http.StatusConflict, codes.Aborted
	case errors.Is(err, database.ErrNotFound),
		errors.Is(err, service.ErrUnknownInstance):
		return http.StatusNotFound, codes.NotFound
	case errors.Is(err, service.ErrOutsideOpeningHours),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInactive):
		return http.StatusUnprocessableEntity, codes.FailedPrecondition
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, export.ErrRangeTooLong),
		errors.Is(err, schedule.ErrInvalidClock),
		errors.Is(err, errBadDate):
		return http.StatusBadRequest, codes.InvalidArgument
	default:
		return http.StatusInternalServerError, codes.Internal
	}
}
