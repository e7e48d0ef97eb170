package controllers

import (
	"net/http"

	"github.com/DanielHemmis/BggCollections/api/responses"
	"github.com/DanielHemmis/BggCollections/api/validators"
	"github.com/DanielHemmis/BggCollections/internal/collections"
	"github.com/DanielHemmis/BggCollections/pkg/logger"
)

const (
	usernamesParam    = "usernames"
	maxUsernameLength = 64
)

type aggregateRequest struct {
	Usernames []string `json:"usernames" validate:"required,min=1,max=25,dive,notblank,max=64"`
}

// CollectionsQuery serves GET /api/v1/collections?usernames=a,b.
func CollectionsQuery(svc collections.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		usernames, err := validators.ParseQueryList(r, usernamesParam, collections.MaxUsernames, maxUsernameLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeAggregate(w, r, svc, logg, usernames)
	}
}

// CollectionsAggregate serves POST /api/v1/collections.
func CollectionsAggregate(svc collections.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req aggregateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeAggregate(w, r, svc, logg, req.Usernames)
	}
}

func writeAggregate(w http.ResponseWriter, r *http.Request, svc collections.Service, logg *logger.Logger, usernames []string) {
	result, err := svc.Aggregate(r.Context(), usernames)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}
