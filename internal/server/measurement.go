package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/metervision/meter-reading-api/internal/service"
)

type uploadRequest struct {
	Image           string `json:"image"`
	CustomerCode    string `json:"customer_code"`
	MeasureDatetime string `json:"measure_datetime"`
	MeasureType     string `json:"measure_type"`
}

type uploadResponse struct {
	ImageURL     string `json:"image_url"`
	MeasureValue int64  `json:"measure_value"`
	MeasureUUID  string `json:"measure_uuid"`
}

// UploadMeasurement handles POST /api/measurements/upload.
func (s *Server) UploadMeasurement(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidDataError("Dados fornecidos são inválidos"))
		return
	}

	result, err := s.svc.Upload(c.Request.Context(), service.UploadInput{
		Image:           req.Image,
		CustomerCode:    req.CustomerCode,
		MeasureDatetime: req.MeasureDatetime,
		MeasureType:     req.MeasureType,
		BaseURL:         requestBaseURL(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, uploadResponse{
		ImageURL:     result.ImageURL,
		MeasureValue: result.MeasureValue,
		MeasureUUID:  result.MeasureUUID.String(),
	})
}

type confirmRequest struct {
	MeasureUUID    string `json:"measure_uuid"`
	ConfirmedValue *int64 `json:"confirmed_value"`
}

// ConfirmMeasurement handles PATCH /api/measurements/confirm. The binding
// rejects a non-string measure_uuid and a non-numeric confirmed_value.
func (s *Server) ConfirmMeasurement(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidDataError("Dados fornecidos são inválidos"))
		return
	}
	if req.MeasureUUID == "" || req.ConfirmedValue == nil {
		AbortWithError(c, invalidDataError("Dados fornecidos são inválidos"))
		return
	}

	if err := s.svc.Confirm(c.Request.Context(), req.MeasureUUID, *req.ConfirmedValue); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type listedMeasureResponse struct {
	MeasureUUID     string    `json:"measure_uuid"`
	MeasureDatetime time.Time `json:"measure_datetime"`
	MeasureType     string    `json:"measure_type"`
	HasConfirmed    bool      `json:"has_confirmed"`
	ImageURL        *string   `json:"image_url"`
}

type listResponse struct {
	CustomerCode string                  `json:"customer_code"`
	Measures     []listedMeasureResponse `json:"measures"`
}

// ListMeasurements handles GET /api/measurements/:customer_code/list.
func (s *Server) ListMeasurements(c *gin.Context) {
	result, err := s.svc.List(c.Request.Context(), c.Param("customer_code"), c.Query("measure_type"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := listResponse{
		CustomerCode: result.CustomerCode,
		Measures:     make([]listedMeasureResponse, 0, len(result.Measures)),
	}
	for _, m := range result.Measures {
		resp.Measures = append(resp.Measures, listedMeasureResponse{
			MeasureUUID:     m.MeasureUUID.String(),
			MeasureDatetime: m.MeasureDatetime,
			MeasureType:     string(m.MeasureType),
			HasConfirmed:    m.HasConfirmed,
			ImageURL:        m.ImageURL,
		})
	}

	c.JSON(http.StatusOK, resp)
}

func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
