package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/spf13/cast"

	"github.com/dshills/shopadmin/internal/auth"
	"github.com/dshills/shopadmin/internal/idempotency"
	"github.com/dshills/shopadmin/internal/logging"
	"github.com/dshills/shopadmin/internal/metrics"
	"github.com/dshills/shopadmin/internal/orders"
	"github.com/dshills/shopadmin/internal/storage"
	"github.com/dshills/shopadmin/pkg/types"
)

const maxBodyBytes = 1 << 20

// Options wires the server's collaborators
type Options struct {
	Orders         *orders.Manager
	Auth           *auth.Authenticator
	Idempotency    *idempotency.Store
	Storage        storage.Storage
	Metrics        *metrics.Registry
	Logger         *logging.Logger
	RequestTimeout time.Duration
}

// Server serves the order API
type Server struct {
	orders  *orders.Manager
	auth    *auth.Authenticator
	idem    *idempotency.Store
	store   storage.Storage
	metrics *metrics.Registry
	logger  *logging.Logger
	timeout time.Duration
}

// New creates a server. Orders, Auth and Storage are required.
func New(opts Options) (*Server, error) {
	if opts.Orders == nil || opts.Auth == nil || opts.Storage == nil {
		return nil, fmt.Errorf("httpapi: orders, auth and storage are required")
	}
	s := &Server{
		orders:  opts.Orders,
		auth:    opts.Auth,
		idem:    opts.Idempotency,
		store:   opts.Storage,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		timeout: opts.RequestTimeout,
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.idem == nil {
		idem, err := idempotency.New(0)
		if err != nil {
			return nil, err
		}
		s.idem = idem
	}
	return s, nil
}

// Handler returns the gin engine with routes and middleware
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.instrument())
	r.NoRoute(func(c *gin.Context) {
		writeError(c, fmt.Errorf("%w: route %s %s", types.ErrNotFound, c.Request.Method, c.Request.URL.Path))
	})

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/orders", s.requireAuth())
	api.POST("", s.handleCreate)
	api.GET("", s.handleList)
	api.GET("/:id", s.handleGet)
	api.PATCH("/:id", s.handleUpdate)
	api.DELETE("/:id", s.handleDelete)

	return r
}

// instrument applies the request timeout, then records metrics and a log line per request
func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		if s.timeout > 0 {
			ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
			defer cancel()
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()

		route := "unmatched"
		if p := c.FullPath(); p != "" {
			route = c.Request.Method + " " + p
		}
		status := strconv.Itoa(c.Writer.Status())
		elapsed := time.Since(start)
		s.metrics.Server.Requests.WithLabelValues(route, status).Inc()
		s.metrics.Server.LatencyMS.WithLabelValues(route).Observe(float64(elapsed.Microseconds()) / 1000)

		fields := logging.Fields{
			Op:         "http " + route,
			Status:     status,
			DurationMS: elapsed.Milliseconds(),
			Message:    c.Request.Method + " " + c.Request.URL.Path,
		}
		if actor, ok := auth.ActorFromContext(c.Request.Context()); ok {
			fields.ActorID = actor.ID
		}
		if err := c.Errors.Last(); err != nil {
			fields.Error = err.Error()
		}
		s.logger.Log(fields)
	}
}

// requireAuth rejects requests without a valid bearer token and puts the user on the request context
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := s.auth.Authenticate(c.Request)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Request = c.Request.WithContext(auth.WithUser(c.Request.Context(), u))
		c.Next()
	}
}

func actorOf(c *gin.Context) (types.Actor, error) {
	actor, ok := auth.ActorFromContext(c.Request.Context())
	if !ok {
		return types.Actor{}, auth.ErrMissingToken
	}
	return actor, nil
}

func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: request body too large", errBadRequest)
	}
	return body, nil
}

func decode(body []byte, v any) error {
	if len(body) == 0 {
		return fmt.Errorf("%w: empty request body", errBadRequest)
	}
	if err := binding.JSON.BindBody(body, v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}

func queryBool(c *gin.Context, key string) (bool, error) {
	v := c.Query(key)
	if v == "" {
		return false, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", errBadRequest, key)
	}
	return b, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}
	return n, nil
}

func (s *Server) handleCreate(c *gin.Context) {
	actor, err := actorOf(c)
	if err != nil {
		writeError(c, err)
		return
	}
	body, err := readBody(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var in orders.CreateInput
	if err := decode(body, &in); err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	var created *types.Order
	id, replayed, err := s.idem.Do(ctx, actor.ID, idempotency.Key(c.Request), body, func() (string, error) {
		order, err := s.orders.Create(ctx, in, actor)
		if err != nil {
			return "", err
		}
		created = order
		return order.ID, nil
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if replayed {
		order, err := s.orders.FindOne(ctx, id, true)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Header("Idempotent-Replayed", "true")
		created = order
	}
	writeData(c, http.StatusCreated, "Create a new order", created)
}

// listQuery parses the pagination and filter query parameters
func listQuery(c *gin.Context) (orders.ListQuery, error) {
	var lq orders.ListQuery
	var err error

	if lq.Current, err = queryInt(c, "current"); err != nil {
		return lq, err
	}
	if lq.PageSize, err = queryInt(c, "pageSize"); err != nil {
		return lq, err
	}
	if lq.IncludeDeleted, err = queryBool(c, "withDeleted"); err != nil {
		return lq, err
	}
	lq.Status = types.OrderStatus(c.Query("status"))
	lq.UserID = c.Query("userId")
	lq.Sort = c.Query("sort")
	return lq, nil
}

func (s *Server) handleList(c *gin.Context) {
	lq, err := listQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	page, err := s.orders.FindAll(c.Request.Context(), lq)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "Fetch list order with paginate", page)
}

func (s *Server) handleGet(c *gin.Context) {
	includeDeleted, err := queryBool(c, "withDeleted")
	if err != nil {
		writeError(c, err)
		return
	}

	order, err := s.orders.FindOne(c.Request.Context(), c.Param("id"), includeDeleted)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "Fetch order by id", order)
}

func (s *Server) handleUpdate(c *gin.Context) {
	actor, err := actorOf(c)
	if err != nil {
		writeError(c, err)
		return
	}
	body, err := readBody(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var in orders.UpdateInput
	if err := decode(body, &in); err != nil {
		writeError(c, err)
		return
	}

	order, err := s.orders.Update(c.Request.Context(), c.Param("id"), in, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "Update an order", order)
}

func (s *Server) handleDelete(c *gin.Context) {
	actor, err := actorOf(c)
	if err != nil {
		writeError(c, err)
		return
	}
	result, err := s.orders.Remove(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "Delete an order", result)
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorBody{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "storage unavailable",
			Error:      http.StatusText(http.StatusServiceUnavailable),
		})
		return
	}
	writeData(c, http.StatusOK, "ok", gin.H{"status": "healthy"})
}
