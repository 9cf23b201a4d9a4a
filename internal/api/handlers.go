package api

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"qrent/server/config"
	"qrent/server/internal/apperrors"
	"qrent/server/internal/database"
	"qrent/server/internal/search"
	"qrent/server/internal/stats"
)

type Handler struct {
	db            *database.Database
	searchService *search.Service
	statsManager  *stats.Manager
	logger        *logrus.Logger
}

func NewHandler(db *database.Database, searchService *search.Service, statsManager *stats.Manager, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:            db,
		searchService: searchService,
		statsManager:  statsManager,
		logger:        logger,
	}
}

// Search runs a preference-filtered property search and returns one page of
// results plus the whole-set aggregates.
func (h *Handler) Search(c *gin.Context) {
	var pref search.Preference
	if err := c.ShouldBindJSON(&pref); err != nil {
		h.logger.WithError(err).Error("Failed to parse search preference")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if pref.TargetSchool != "" && config.GetSchoolByName(pref.TargetSchool) == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported target school: " + pref.TargetSchool})
		return
	}

	result, err := h.searchService.Search(c.Request.Context(), &pref)
	if err != nil {
		if apperrors.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("Search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search properties"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRegionalStats serves cached-or-computed market statistics for the
// requested region tokens; no tokens means all regions.
func (h *Handler) GetRegionalStats(c *gin.Context) {
	regions := c.Query("regions")

	response, err := h.statsManager.GetRegionalStats(c.Request.Context(), regions)
	if err != nil {
		if apperrors.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("Failed to get regional stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get regional stats"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// InvalidateStatsCache drops every cached statistics entry. Invalidation is
// best-effort housekeeping, so this always reports success.
func (h *Handler) InvalidateStatsCache(c *gin.Context) {
	h.statsManager.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "Stats cache invalidated"})
}

// GetRegions lists all known regions.
func (h *Handler) GetRegions(c *gin.Context) {
	regions, err := h.db.FindRegionsByNamePrefixes(c.Request.Context(), nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list regions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list regions"})
		return
	}

	c.JSON(http.StatusOK, regions)
}

// GetSchools lists the supported target schools.
func (h *Handler) GetSchools(c *gin.Context) {
	c.JSON(http.StatusOK, config.SupportedSchools)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
