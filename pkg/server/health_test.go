// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func resetHealthServerState() {
	once = *new(sync.Once)
	engineMu.Lock()
	engine = nil
	engineMu.Unlock()
	registersMu.Lock()
	registers = []func(g *gin.RouterGroup){}
	registersMu.Unlock()
	AddRegister(addMetrics)
}

func applyRegisters() *gin.Engine {
	testEngine := gin.New()
	group := testEngine.Group("")
	registersMu.Lock()
	for _, register := range registers {
		register(group)
	}
	registersMu.Unlock()
	return testEngine
}

func TestAddDefaultRegister(t *testing.T) {
	resetHealthServerState()

	AddDefaultRegister("/health", func() (interface{}, error) {
		return map[string]string{"status": "healthy"}, nil
	})

	testEngine := applyRegisters()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	testEngine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
}

func TestAddDefaultRegisterError(t *testing.T) {
	resetHealthServerState()

	AddDefaultRegister("/broken", func() (interface{}, error) {
		return nil, assert.AnError
	})

	testEngine := applyRegisters()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/broken", nil)
	testEngine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	resetHealthServerState()

	testEngine := applyRegisters()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	testEngine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# HELP")
}

func TestMetricsCustomGatherer(t *testing.T) {
	resetHealthServerState()

	customRegistry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "praxis_test_counter",
		Help: "test counter",
	})
	customRegistry.MustRegister(counter)
	counter.Inc()

	original := defaultGather
	defer SetDefaultGather(original)
	SetDefaultGather(customRegistry)

	testEngine := applyRegisters()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	testEngine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "praxis_test_counter")
}

func TestInitHealthServerOnlyOnce(t *testing.T) {
	resetHealthServerState()

	InitHealthServer(19997)
	engineMu.RLock()
	first := engine
	engineMu.RUnlock()

	InitHealthServer(19996)
	engineMu.RLock()
	second := engine
	engineMu.RUnlock()

	assert.Equal(t, first, second)
}
