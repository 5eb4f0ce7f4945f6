package driver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-fleet/internal/driver"
	drivererrors "go-fleet/internal/driver/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type apiEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type fakeDriverService struct {
	createFn     func(ctx context.Context, req driver.CreateDriverRequest) (driver.DriverResponse, error)
	getByCodeFn  func(ctx context.Context, code string) (driver.DriverResponse, error)
	getBalanceFn func(ctx context.Context, code string) (driver.BalanceResponse, error)
}

func (f *fakeDriverService) Create(ctx context.Context, req driver.CreateDriverRequest) (driver.DriverResponse, error) {
	return f.createFn(ctx, req)
}
func (f *fakeDriverService) GetByCode(ctx context.Context, code string) (driver.DriverResponse, error) {
	return f.getByCodeFn(ctx, code)
}
func (f *fakeDriverService) GetBalance(ctx context.Context, code string) (driver.BalanceResponse, error) {
	return f.getBalanceFn(ctx, code)
}

func TestDriverHandler_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeDriverService{
			createFn: func(ctx context.Context, req driver.CreateDriverRequest) (driver.DriverResponse, error) {
				assert.Equal(t, "D1", req.ExternalCode)
				assert.Nil(t, req.AnnualAllowanceDays)
				return driver.DriverResponse{ExternalCode: req.ExternalCode, AnnualAllowanceDays: 25, RemainingDays: 25}, nil
			},
		}
		h := driver.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"external_code":"D1","full_name":"Dana Driver","employment_type":"FULL_TIME"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/drivers", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")

		h.Create(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		var env apiEnvelope
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.True(t, env.Ok)
	})

	t.Run("negative invalid employment type", func(t *testing.T) {
		h := driver.NewHandler(&fakeDriverService{})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"external_code":"D1","full_name":"Dana Driver","employment_type":"SEASONAL"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/drivers", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")

		h.Create(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("negative duplicate", func(t *testing.T) {
		svc := &fakeDriverService{
			createFn: func(ctx context.Context, req driver.CreateDriverRequest) (driver.DriverResponse, error) {
				return driver.DriverResponse{}, drivererrors.ErrDriverAlreadyExists
			},
		}
		h := driver.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"external_code":"D1","full_name":"Dana Driver","employment_type":"FULL_TIME"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/drivers", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")

		h.Create(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestDriverHandler_GetBalance(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeDriverService{
			getBalanceFn: func(ctx context.Context, code string) (driver.BalanceResponse, error) {
				assert.Equal(t, "D1", code)
				return driver.BalanceResponse{DriverCode: code, Allowance: 10, Used: 5, Remaining: 5}, nil
			},
		}
		h := driver.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/drivers/D1/balance", nil)
		c.Params = gin.Params{{Key: "code", Value: "D1"}}

		h.GetBalance(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var env apiEnvelope
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		var got driver.BalanceResponse
		assert.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, 5, got.Remaining)
	})

	t.Run("negative not found", func(t *testing.T) {
		svc := &fakeDriverService{
			getBalanceFn: func(ctx context.Context, code string) (driver.BalanceResponse, error) {
				return driver.BalanceResponse{}, drivererrors.ErrDriverNotFound
			},
		}
		h := driver.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/drivers/X/balance", nil)
		c.Params = gin.Params{{Key: "code", Value: "X"}}

		h.GetBalance(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		var env apiEnvelope
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.Equal(t, "NOT_FOUND", env.Error.Code)
	})
}

func TestDriverHandler_GetByCode(t *testing.T) {
	svc := &fakeDriverService{
		getByCodeFn: func(ctx context.Context, code string) (driver.DriverResponse, error) {
			return driver.DriverResponse{ExternalCode: code, FullName: "Dana Driver"}, nil
		},
	}
	h := driver.NewHandler(svc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/drivers/D1", nil)
	c.Params = gin.Params{{Key: "code", Value: "D1"}}

	h.GetByCode(c)

	assert.Equal(t, http.StatusOK, w.Code)
}
