// Package api административный REST API симуляции: снимки кадров,
// карта систем, история событий и команды миру.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/pilotsim/internal/auth"
	"github.com/annel0/pilotsim/internal/eventbus"
	"github.com/annel0/pilotsim/internal/logging"
	"github.com/annel0/pilotsim/internal/metrics"
	"github.com/annel0/pilotsim/internal/middleware"
	"github.com/annel0/pilotsim/internal/pilot"
	"github.com/annel0/pilotsim/internal/player"
	"github.com/annel0/pilotsim/internal/snapshot"
	"github.com/annel0/pilotsim/internal/storage"
	"github.com/annel0/pilotsim/internal/vec"
	"github.com/annel0/pilotsim/internal/world"
)

const defaultCommandTimeout = 2 * time.Second

// History источник истории событий пилота
type History interface {
	History(ctx context.Context, pilotID uint32, limit int64) ([]eventbus.Envelope, error)
}

// Config зависимости REST сервера. Обязательны World и Issuer.
type Config struct {
	Port           string
	World          *world.World
	Issuer         *auth.Issuer
	Snapshots      storage.SnapshotRepo
	History        History
	Process        *metrics.Process
	Webhooks       *OutboundWebhookManager
	Registerer     prometheus.Registerer
	Gatherer       prometheus.Gatherer
	CommandTimeout time.Duration
}

// RestServer REST API сервер
type RestServer struct {
	router    *gin.Engine
	server    *http.Server
	world     *world.World
	issuer    *auth.Issuer
	snapshots storage.SnapshotRepo
	history   History
	process   *metrics.Process
	webhooks  *OutboundWebhookManager
	timeout   time.Duration
	logger    *logging.Logger
}

// GenericResponse общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создаёт сервер и настраивает маршруты
func NewRestServer(cfg Config) *RestServer {
	if cfg.Port == "" {
		cfg.Port = ":8080"
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}
	if cfg.Webhooks == nil {
		cfg.Webhooks = NewOutboundWebhookManager()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// === Observability middleware ===
	router.Use(otelgin.Middleware("pilotsim_api"))
	router.Use(middleware.NewRequestLogger().Handler())
	router.Use(middleware.NewAPIMetrics(cfg.Registerer).Handler())
	middleware.RegisterMetricsEndpoint(router, cfg.Gatherer)

	rs := &RestServer{
		router:    router,
		world:     cfg.World,
		issuer:    cfg.Issuer,
		snapshots: cfg.Snapshots,
		history:   cfg.History,
		process:   cfg.Process,
		webhooks:  cfg.Webhooks,
		timeout:   cfg.CommandTimeout,
		logger:    logging.GetServerLogger(),
	}
	rs.server = &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	rs.setupRoutes()
	return rs
}

func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	api.Use(middleware.JWT(rs.issuer))
	{
		api.GET("/frame", rs.handleFrame)
		api.GET("/pilots", rs.handlePilots)
		api.GET("/pilots/:id", rs.handlePilot)
		api.GET("/pilots/:id/history", rs.handlePilotHistory)
		api.GET("/systems", rs.handleSystems)
		api.GET("/systems/route", rs.handleRoute)
		api.GET("/ships", rs.handleShips)
		api.GET("/snapshots", rs.handleSnapshots)
		api.GET("/snapshots/:frame", rs.handleSnapshot)
	}

	admin := api.Group("/")
	admin.Use(middleware.Admin())
	{
		admin.POST("/player", rs.handleStartPlayer)
		admin.POST("/player/command", rs.handlePlayerCommand)
		admin.POST("/pilots", rs.handleSpawn)
		admin.POST("/pilots/:id/damage", rs.handleDamage)
		admin.POST("/pilots/:id/hooks", rs.handleAddHook)
		admin.POST("/pilots/:id/escorts", rs.handleSpawnEscort)
		admin.POST("/pilots/:id/deploy", rs.handleDeploy)
		admin.POST("/pilots/:id/jump", rs.handleJump)
		admin.DELETE("/hooks/:handler", rs.handleRmHook)

		admin.GET("/webhooks", rs.handleGetWebhooks)
		admin.POST("/webhooks", rs.handleCreateWebhook)
		admin.GET("/webhooks/:id", rs.handleGetWebhook)
		admin.PUT("/webhooks/:id/active", rs.handleSetWebhookActive)
		admin.DELETE("/webhooks/:id", rs.handleDeleteWebhook)
	}
}

// Handler HTTP обработчик сервера
func (rs *RestServer) Handler() http.Handler { return rs.router }

// Start запускает сервер и блокируется до остановки
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.server.Addr)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop останавливает сервер, дожидаясь текущих запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}

// submit выполняет команду в цикле симуляции с таймаутом запроса
func (rs *RestServer) submit(c *gin.Context, fn func(w *world.World) error) error {
	ctx, cancel := context.WithTimeout(c.Request.Context(), rs.timeout)
	defer cancel()
	return rs.world.Submit(ctx, fn)
}

func (rs *RestServer) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= 500 {
		rs.logger.Warn("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, GenericResponse{Success: false, Message: err.Error()})
}

func (rs *RestServer) ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: data})
}

func (rs *RestServer) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: msg})
}

// statusOf переводит ошибку домена в HTTP статус
func statusOf(err error) int {
	switch {
	case errors.Is(err, world.ErrNoPilot), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, world.ErrInvalidArgument), errors.Is(err, world.ErrUnknownShip),
		errors.Is(err, world.ErrUnknownFaction), errors.Is(err, player.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, world.ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		// Отказы по состоянию пилота: нет топлива, прыжок идёт, пилот погиб
		return http.StatusConflict
	}
}

func (rs *RestServer) latest(c *gin.Context) (*snapshot.Frame, bool) {
	f := rs.world.Latest()
	if f == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Success: false, Message: "кадр ещё не готов"})
		return nil, false
	}
	return f, true
}

func pilotID(c *gin.Context) (uint32, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "неверный ID пилота"})
		return 0, false
	}
	return uint32(id), true
}

func queryLimit(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if f := rs.world.Latest(); f != nil {
		resp["frame"] = f.Frame
		resp["system"] = f.System
		resp["pilots"] = len(f.Pilots)
	}
	if rs.process != nil {
		resp["uptime"] = rs.process.Uptime()
	}
	c.JSON(http.StatusOK, resp)
}

func (rs *RestServer) handleFrame(c *gin.Context) {
	if f, ok := rs.latest(c); ok {
		rs.ok(c, f)
	}
}

func (rs *RestServer) handlePilots(c *gin.Context) {
	if f, ok := rs.latest(c); ok {
		rs.ok(c, f.Pilots)
	}
}

func (rs *RestServer) handlePilot(c *gin.Context) {
	id, ok := pilotID(c)
	if !ok {
		return
	}
	f, ok := rs.latest(c)
	if !ok {
		return
	}
	p, found := f.Pilot(id)
	if !found {
		rs.fail(c, world.ErrNoPilot)
		return
	}
	rs.ok(c, p)
}

func (rs *RestServer) handlePilotHistory(c *gin.Context) {
	id, ok := pilotID(c)
	if !ok {
		return
	}
	if rs.history == nil {
		c.JSON(http.StatusNotImplemented, GenericResponse{Success: false, Message: "архив событий не настроен"})
		return
	}
	events, err := rs.history.History(c.Request.Context(), id, int64(queryLimit(c, 50)))
	if err != nil {
		c.JSON(http.StatusBadGateway, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	rs.ok(c, events)
}

type systemInfo struct {
	Name    string   `json:"name"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Faction string   `json:"faction,omitempty"`
	Jumps   []string `json:"jumps"`
}

func (rs *RestServer) handleSystems(c *gin.Context) {
	stars := rs.world.StarMap()
	names := stars.Names()
	out := make([]systemInfo, 0, len(names))
	for _, name := range names {
		s, _ := stars.System(name)
		out = append(out, systemInfo{
			Name:    s.Name,
			X:       s.X,
			Y:       s.Y,
			Faction: s.Faction,
			Jumps:   stars.Adjacent(name),
		})
	}
	rs.ok(c, out)
}

func (rs *RestServer) handleRoute(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		rs.badRequest(c, "нужны параметры from и to")
		return
	}
	route := rs.world.StarMap().Route(from, to)
	if len(route) == 0 {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "маршрут не найден"})
		return
	}
	rs.ok(c, route)
}

func (rs *RestServer) handleShips(c *gin.Context) {
	rs.ok(c, rs.world.Catalog().ShipNames())
}

func (rs *RestServer) handleSnapshots(c *gin.Context) {
	if rs.snapshots == nil {
		c.JSON(http.StatusNotImplemented, GenericResponse{Success: false, Message: "хранилище снимков не настроено"})
		return
	}
	frames, err := rs.snapshots.List(c.Request.Context(), queryLimit(c, 20))
	if err != nil {
		rs.fail(c, err)
		return
	}
	rs.ok(c, frames)
}

func (rs *RestServer) handleSnapshot(c *gin.Context) {
	if rs.snapshots == nil {
		c.JSON(http.StatusNotImplemented, GenericResponse{Success: false, Message: "хранилище снимков не настроено"})
		return
	}
	frame, err := strconv.ParseUint(c.Param("frame"), 10, 64)
	if err != nil {
		rs.badRequest(c, "неверный номер кадра")
		return
	}
	f, err := rs.snapshots.Get(c.Request.Context(), frame)
	if err != nil {
		rs.fail(c, err)
		return
	}
	rs.ok(c, f)
}

// StartPlayerRequest запрос на создание пилота игрока
type StartPlayerRequest struct {
	Ship string  `json:"ship" binding:"required"`
	Name string  `json:"name" binding:"required"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (rs *RestServer) handleStartPlayer(c *gin.Context) {
	var req StartPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.badRequest(c, "неверный формат запроса: "+err.Error())
		return
	}
	var out snapshot.Pilot
	err := rs.submit(c, func(w *world.World) error {
		p, err := w.StartPlayer(req.Ship, req.Name, vec.New(req.X, req.Y))
		if err != nil {
			return err
		}
		out = snapshot.FromPilot(w.Registry(), p)
		return nil
	})
	if err != nil {
		rs.fail(c, err)
		return
	}
	rs.ok(c, out)
}

// CommandRequest команда ввода игрока
type CommandRequest struct {
	Command string  `json:"command" binding:"required"`
	Value   float64 `json:"value"`
}

func (rs *RestServer) handlePlayerCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.badRequest(c, "неверный формат запроса: "+err.Error())
		return
	}
	err := rs.submit(c, func(w *world.World) error {
		return w.PlayerCommand(req.Command, req.Value)
	})
	if err != nil {
		rs.fail(c, err)
		return
	}
	rs.ok(c, nil)
}

// SpawnRequest запрос на создание пилота ИИ
type SpawnRequest struct {
	Ship    string  `json:"ship" binding:"required"`
	Name    string  `json:"name"`
	Faction string  `json:"faction" binding:"required"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Dir     float64 `json:"dir"`
}

func (rs *RestServer) handleSpawn(c *gin.Context) {
	var req SpawnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.badRequest(c, "неверный формат запроса: "+err.Error())
		return
	}
	var out snapshot.Pilot
	err := rs.submit(c, func(w *world.World) error {
		p, err := w.Spawn(req.Ship, req.Name, req.Faction, vec.New(req.X, req.Y), req.Dir)
		if err != nil {
			return err
		}
		out = snapshot.FromPilot(w.Registry(), p)
		return nil
	})
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Data: out})
}

// DamageRequest урон пилоту от среды
type DamageRequest struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount" binding:"required"`
}

func (rs *RestServer) handleDamage(c *gin.Context) {
	id, ok := pilotID(c)
	if !ok {
		return
	}
	var req DamageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.badRequest(c, "неверный формат запроса: "+err.Error())
		return
	}
	if req.Type == "" {
		req.Type = "raw"
	}
	var absorbed float64
	err := rs.submit(c, func(w *world.World) error {
		var err error
		absorbed, err = w.Damage(id, req.Type, req.Amount)
		return err
	})
	if err != nil {
		rs.fail(c, err)
		return
	}
	rs.ok(c, gin.H{"absorbed": absorbed})
}

// HookRequest регистрация обработчика события пилота
type HookRequest struct {
	Hook    string `json:"hook" binding:"required"`
	Handler uint32 `json:"handler" binding:"required"`
}

func (rs *RestServer) handleAddHook(c *gin.Context) {
	id, ok := pilotID(c)
	if !ok {
		return
	}
	var req HookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.badRequest(c, "неверный формат запроса: "+err.Error())
		return
	}
	err := rs.submit(c, func(w *world.World) error {
		return w.AddHook(id, req.Hook, req.Handler)
	})
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{Success: true})
}

func (rs *RestServer) handleRmHook(c *gin.Context) {
	handler, err := strconv.ParseUint(c.Param("handler"), 10, 32)
	if err != nil {
		rs.badRequest(c, "неверный обработчик")
		return
	}
	var removed int
	err = rs.submit(c, func(w *world.World) error {
		removed = w.RmHook(uint32(handler))
		return nil
	})
	if err != nil {
		rs.fail(c, err)
		return
	}
	rs.ok(c, gin.H{"removed": removed})
}

// EscortRequest запрос на наём эскорта
type EscortRequest struct {
	Ship string `json:"ship" binding:"required"`
}

func (rs *RestServer) handleSpawnEscort(c *gin.Context) {
	id, ok := pilotID(c)
	if !ok {
		return
	}
	var req EscortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.badRequest(c, "неверный формат запроса: "+err.Error())
		return
	}
	rs.spawnWith(c, func(w *world.World) (*pilot.Pilot, error) {
		return w.SpawnEscort(id, req.Ship)
	})
}

// DeployRequest запрос на выпуск истребителя
type DeployRequest struct {
	Slot int `json:"slot"`
}

func (rs *RestServer) handleDeploy(c *gin.Context) {
	id, ok := pilotID(c)
	if !ok {
		return
	}
	var req DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.badRequest(c, "неверный формат запроса: "+err.Error())
		return
	}
	rs.spawnWith(c, func(w *world.World) (*pilot.Pilot, error) {
		return w.Deploy(id, req.Slot)
	})
}

func (rs *RestServer) spawnWith(c *gin.Context, create func(w *world.World) (*pilot.Pilot, error)) {
	var out snapshot.Pilot
	err := rs.submit(c, func(w *world.World) error {
		p, err := create(w)
		if err != nil {
			return err
		}
		out = snapshot.FromPilot(w.Registry(), p)
		return nil
	})
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Data: out})
}

// JumpRequest запрос на гиперпрыжок
type JumpRequest struct {
	System string `json:"system" binding:"required"`
}

func (rs *RestServer) handleJump(c *gin.Context) {
	id, ok := pilotID(c)
	if !ok {
		return
	}
	var req JumpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.badRequest(c, "неверный формат запроса: "+err.Error())
		return
	}
	err := rs.submit(c, func(w *world.World) error {
		return w.Jump(id, req.System)
	})
	if err != nil {
		rs.fail(c, err)
		return
	}
	rs.ok(c, nil)
}

func (rs *RestServer) handleGetWebhooks(c *gin.Context) {
	rs.ok(c, rs.webhooks.GetWebhooks())
}

func (rs *RestServer) handleCreateWebhook(c *gin.Context) {
	var req OutboundWebhook
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.badRequest(c, "неверный формат запроса: "+err.Error())
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Data: rs.webhooks.AddWebhook(req)})
}

func webhookID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "неверный ID webhook"})
		return 0, false
	}
	return id, true
}

func (rs *RestServer) handleGetWebhook(c *gin.Context) {
	id, ok := webhookID(c)
	if !ok {
		return
	}
	w, found := rs.webhooks.GetWebhook(id)
	if !found {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "webhook не найден"})
		return
	}
	rs.ok(c, w)
}

func (rs *RestServer) handleSetWebhookActive(c *gin.Context) {
	id, ok := webhookID(c)
	if !ok {
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.badRequest(c, "неверный формат запроса: "+err.Error())
		return
	}
	if !rs.webhooks.SetActive(id, req.Active) {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "webhook не найден"})
		return
	}
	rs.ok(c, nil)
}

func (rs *RestServer) handleDeleteWebhook(c *gin.Context) {
	id, ok := webhookID(c)
	if !ok {
		return
	}
	if !rs.webhooks.DeleteWebhook(id) {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "webhook не найден"})
		return
	}
	rs.ok(c, nil)
}
