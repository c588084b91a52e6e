package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dtmoney/internal/core"
	"dtmoney/internal/log"
	"dtmoney/internal/ports"
)

// createTransactionRequest is the POST body. createdAt is optional and
// defaults to the time of the request.
type createTransactionRequest struct {
	Description string               `json:"description"`
	Price       float64              `json:"price"`
	Category    string               `json:"category"`
	Type        core.TransactionType `json:"type"`
	CreatedAt   *time.Time           `json:"createdAt"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessCheckDeadline)
	defer cancel()

	checks := gin.H{}
	status, code := "ready", http.StatusOK
	if s.ping != nil {
		if err := s.ping(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}

// handleListTransactions supports _sort, _order, q and type.
func (s *Server) handleListTransactions(c *gin.Context) {
	q := ports.ListQuery{
		Search: c.Query("q"),
		Sort:   c.Query("_sort"),
		Order:  c.Query("_order"),
	}
	if raw := c.Query("type"); raw != "" {
		t, err := core.ParseTransactionType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		q.Type = t
	}
	q = q.Normalize()

	key := q.Key()
	if txs, ok := s.listCache.Get(key); ok {
		c.JSON(http.StatusOK, txs)
		return
	}

	// a write landing while List runs clears the cache; the generation
	// check keeps this response from being cached after it
	gen := s.listCache.Generation()
	txs, err := s.transactions.List(c.Request.Context(), q)
	if err != nil {
		s.respondError(c, err, log.OpList)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	s.listCache.SetIfGeneration(key, txs, gen)
	c.JSON(http.StatusOK, txs)
}

func (s *Server) handleGetTransaction(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	tx, err := s.transactions.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, log.OpRead)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (s *Server) handleCreateTransaction(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	nt := core.NewTransaction{
		Description: req.Description,
		Price:       req.Price,
		Type:        req.Type,
		Category:    req.Category,
	}
	if req.CreatedAt != nil {
		nt.CreatedAt = *req.CreatedAt
	} else {
		nt.CreatedAt = time.Now().UTC()
	}
	tx, err := s.transactions.Create(c.Request.Context(), nt)
	if err != nil {
		s.respondError(c, err, log.OpCreate)
		return
	}
	s.invalidateLists()

	c.JSON(http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := s.transactions.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err, log.OpDelete)
		return
	}
	s.invalidateLists()

	c.JSON(http.StatusOK, gin.H{})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		// json-server answers unknown ids with 404, malformed ones included
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return 0, false
	}
	return id, true
}

// respondError maps domain errors to status codes: not found is 404,
// validation failures 400, anything else 500.
func (s *Server) respondError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
	case errors.Is(err, core.ErrInvalidType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.sl.LogError(c.Request.Context(), "Repository operation failed", err, log.ErrorTypeDatabase, op, nil)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
