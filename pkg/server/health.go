// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package server runs the worker's sidecar HTTP listener: prometheus
// metrics plus any health and introspection routes services register.
package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/log"
)

var (
	once     sync.Once
	engineMu sync.RWMutex
	engine   *gin.Engine

	registersMu sync.Mutex
	registers   = []func(g *gin.RouterGroup){}

	defaultGather prometheus.Gatherer = prometheus.DefaultGatherer
)

func init() {
	AddRegister(addMetrics)
}

// AddRegister queues a route register applied when the server starts.
// Call before InitHealthServer.
func AddRegister(register func(g *gin.RouterGroup)) {
	registersMu.Lock()
	defer registersMu.Unlock()
	registers = append(registers, register)
}

// AddDefaultRegister queues a GET route that renders method's result as JSON.
func AddDefaultRegister(path string, method func() (interface{}, error)) {
	AddRegister(func(g *gin.RouterGroup) {
		g.GET(path, func(c *gin.Context) {
			data, err := method()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, data)
		})
	})
}

// SetDefaultGather replaces the gatherer behind /metrics.
func SetDefaultGather(gather prometheus.Gatherer) {
	defaultGather = gather
}

func addMetrics(g *gin.RouterGroup) {
	g.GET("/metrics", func(c *gin.Context) {
		h := promhttp.HandlerFor(defaultGather, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		})
		h.ServeHTTP(c.Writer, c.Request)
	})
}

// InitHealthServer starts the sidecar listener on port. Subsequent calls are
// no-ops; the listener runs until the process exits.
func InitHealthServer(port int) {
	once.Do(func() {
		engineMu.Lock()
		engine = gin.New()
		engine.Use(gin.Recovery())
		group := engine.Group("")

		registersMu.Lock()
		for _, register := range registers {
			register(group)
		}
		registersMu.Unlock()

		current := engine
		engineMu.Unlock()

		go func() {
			if err := current.Run(fmt.Sprintf(":%d", port)); err != nil {
				log.Errorf("health server on :%d: %v", port, err)
			}
		}()
	})
}
