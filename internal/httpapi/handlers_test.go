package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/cartd/internal/xerrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEngine() *gin.Engine {
	engine := gin.New()
	registerRoutes(engine, &handlers{})
	return engine
}

func TestAddItemRejectsMissingRequiredFields(t *testing.T) {
	engine := newTestEngine()

	req := httptest.NewRequest(http.MethodPost, "/carts/cart-1/items", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddItemRejectsMalformedJSON(t *testing.T) {
	engine := newTestEngine()

	req := httptest.NewRequest(http.MethodPost, "/carts/cart-1/items", strings.NewReader(`not json`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteErrorMapsDomainErrorTo422(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	writeError(c, xerrors.Domain("cart already submitted"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestWriteErrorMapsConflictTo409(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	writeError(c, xerrors.Conflict("optimistic concurrency failure"))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestWriteErrorMapsUnknownErrorTo500(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	writeError(c, errors.New("unclassified failure"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
