package webapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"

	"github.com/pajakoo/shoppApp/internal/domain"
	"github.com/pajakoo/shoppApp/internal/metrics"
	"github.com/pajakoo/shoppApp/internal/resolver"
)

func (s *Server) listDevices(c echo.Context) error {
	reg := s.screen.Registry()
	return ok(c, map[string]interface{}{
		"devices":  reg.Devices(),
		"selected": reg.Selected(),
	})
}

type selectPayload struct {
	ID string `json:"id" form:"id"`
}

func (s *Server) selectDevice(c echo.Context) error {
	var payload selectPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse selection", err.Error())
	}
	if err := s.screen.Registry().Select(payload.ID); err != nil {
		return fail(c, http.StatusBadRequest, "UNKNOWN_DEVICE", "No such camera device", payload.ID)
	}
	return ok(c, map[string]interface{}{"selected": s.screen.Registry().Selected()})
}

type scanPayload struct {
	Code string `json:"code" form:"code"`
}

// manualScan feeds a typed barcode through the same debounced pipeline the
// camera uses, so manual entry and continuous scanning behave identically.
func (s *Server) manualScan(c echo.Context) error {
	var payload scanPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse scan", err.Error())
	}
	if payload.Code == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Barcode is required", nil)
	}
	s.screen.Scan(domain.DecodeResult{Code: payload.Code, Timestamp: time.Now()})
	return ok(c, s.screen.Form().Snapshot())
}

func (s *Server) getForm(c echo.Context) error {
	return ok(c, s.screen.Form().Snapshot())
}

type formPayload struct {
	Field string `json:"field" form:"field"`
	Value string `json:"value" form:"value"`
}

func (s *Server) editForm(c echo.Context) error {
	var payload formPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse edit", err.Error())
	}
	switch payload.Field {
	case resolver.FieldBarcode, resolver.FieldName, resolver.FieldPrice, resolver.FieldStore:
	default:
		return fail(c, http.StatusBadRequest, "INVALID_FIELD", "Unknown form field", payload.Field)
	}
	s.screen.Form().Set(payload.Field, payload.Value)
	return ok(c, s.screen.Form().Snapshot())
}

func (s *Server) listProducts(c echo.Context) error {
	return ok(c, s.screen.Controller().Products())
}

func (s *Server) submitProduct(c echo.Context) error {
	err := s.screen.Submit(c.Request().Context())
	switch {
	case err == nil:
		return ok(c, map[string]interface{}{"products": len(s.screen.Controller().Products())})
	case domain.IsValidation(err):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, domain.ErrMutationInFlight):
		return fail(c, http.StatusConflict, "BUSY", "A submission is already in flight", nil)
	default:
		return fail(c, http.StatusBadGateway, "MUTATION_FAILED", "Failed to create product", err.Error())
	}
}

func (s *Server) deleteProduct(c echo.Context) error {
	err := s.screen.Controller().DeleteProduct(c.Request().Context(), c.Param("id"))
	switch {
	case err == nil:
		return ok(c, map[string]interface{}{"id": c.Param("id")})
	case domain.IsValidation(err):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, domain.ErrMutationInFlight):
		return fail(c, http.StatusConflict, "BUSY", "A mutation is already in flight", nil)
	default:
		return fail(c, http.StatusBadGateway, "MUTATION_FAILED", "Failed to delete product", err.Error())
	}
}

func (s *Server) exportProducts(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return s.screen.Controller().ExportCSV(c.Response())
}

func (s *Server) listStores(c echo.Context) error {
	return ok(c, s.screen.Stores().Known())
}

func (s *Server) suggestStores(c echo.Context) error {
	return ok(c, s.screen.Stores().Suggest(c.QueryParam("q")))
}

func (s *Server) status(c echo.Context) error {
	st := map[string]interface{}{
		"session":  s.screen.Session().Stats(),
		"variant":  s.screen.Variant(),
		"debounce": s.actx.Config().Scanner.Debounce.String(),
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		st["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		st["mem_percent"] = vm.UsedPercent
	}
	return ok(c, st)
}

func (s *Server) queryMetrics(c echo.Context) error {
	metric := c.QueryParam("metric")
	if metric == "" {
		metric = metrics.MetricScan
	}
	minutes := 60
	if v := c.QueryParam("minutes"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 {
			minutes = m
		}
	}
	end := time.Now().Unix()
	start := end - int64(minutes)*60
	points, err := metrics.Query(metric, start, end)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "METRICS_ERROR", "Failed to query metrics", err.Error())
	}
	return ok(c, map[string]interface{}{"metric": metric, "points": points})
}
