package handler

import (
	"net/http"

	"github.com/NoamTeshuva/pedestrian-web/internal/api/models"
	"github.com/NoamTeshuva/pedestrian-web/internal/api/response"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict"
	"github.com/NoamTeshuva/pedestrian-web/internal/search"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct{}

// NewMetadataHandler creates a MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

// GetEnums handles GET /v1/metadata/enums - the enum values accepted by
// the search and predict endpoints.
func (h *MetadataHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	enums := models.Enums{VolumeBins: predict.VolumeBins()}
	for _, s := range search.Seasons() {
		enums.Seasons = append(enums.Seasons, string(s))
	}
	for _, wt := range search.WeekTypes() {
		enums.WeekTypes = append(enums.WeekTypes, string(wt))
	}
	for _, d := range search.TimesOfDay() {
		enums.TimesOfDay = append(enums.TimesOfDay, string(d))
	}
	response.JSON(w, r, http.StatusOK, enums)
}
