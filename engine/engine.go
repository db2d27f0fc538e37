// Package engine is the composition root. It builds one instance of every
// component, connects their emitters through an EventBus and owns the
// background loops.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradecore/config"
	"tradecore/dispatch"
	"tradecore/exchange"
	"tradecore/logging"
	"tradecore/messaging"
	"tradecore/metrics"
	"tradecore/model"
	"tradecore/nodestate"
	"tradecore/orders"
	"tradecore/registry"
	"tradecore/routing"
	"tradecore/store"
)

const healthCheckInterval = 30 * time.Second

// MessagingClient is the broker connection used for egress and ingestion.
type MessagingClient interface {
	messaging.Publisher
	messaging.Subscriber
}

type Config struct {
	AppConfig *config.Config
	// DB persists nodes, orders, agreements and the outbox. nil keeps
	// everything in memory.
	DB        *store.DB
	Redis     *nodestate.RedisStore
	MsgClient MessagingClient
	Logger    *zap.Logger
}

type Engine struct {
	cfg       *config.Config
	db        *store.DB
	outbox    store.Outbox
	msgClient MessagingClient

	registry  *registry.Registry
	router    *routing.Router
	simulator *dispatch.Simulator
	orders    *orders.Manager
	exchange  *exchange.Scheduler
	facade    *metrics.Facade
	recorder  *metrics.Recorder
	nodeState *nodestate.Manager

	egress   *messaging.Egress
	drainer  *messaging.OutboxDrainer
	consumer *messaging.Consumer

	Events *EventBus

	log          *zap.Logger
	sugar        *zap.SugaredLogger
	audit        *zap.SugaredLogger
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	msgConnected bool
}

// New builds the engine, loads persisted nodes and seeds the registry.
// Nothing runs until Start.
func New(c Config) (*Engine, error) {
	cfg := c.AppConfig
	if cfg == nil {
		cfg = config.Defaults()
	}
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}

	rate := decimal.Zero
	if cfg.Engine.ShippingRate != "" {
		r, err := decimal.NewFromString(cfg.Engine.ShippingRate)
		if err != nil {
			return nil, fmt.Errorf("engine: shipping rate %q: %w", cfg.Engine.ShippingRate, err)
		}
		rate = r
	}

	e := &Engine{
		cfg:       cfg,
		db:        c.DB,
		msgClient: c.MsgClient,
		Events:    NewEventBus(log),
		log:       log,
		sugar:     logging.Named(log, "engine"),
		audit:     logging.Named(log, "audit"),
		stopChan:  make(chan struct{}),
	}

	var (
		nodeRepo      model.Repository[model.Node]
		orderRepo     model.Repository[model.Order]
		agreementRepo model.Repository[model.Agreement]
	)
	if c.DB != nil {
		nodeRepo, orderRepo, agreementRepo = c.DB.Nodes(), c.DB.Orders(), c.DB.Agreements()
		e.outbox = c.DB
	} else {
		nodeRepo, orderRepo, agreementRepo = store.NewMemoryNodes(), store.NewMemoryOrders(), store.NewMemoryAgreements()
		e.outbox = store.NewMemoryOutbox()
	}

	e.registry = registry.New(nodeRepo, &registryEmitter{bus: e.Events}, log)
	e.router = routing.NewRouter(rate)
	e.simulator = dispatch.NewSimulator(e.registry, &dispatchEmitter{bus: e.Events}, cfg.Engine.DispatchInterval, log)
	e.orders = orders.NewManager(orderRepo, e.registry, e.router, e.simulator, &orderEmitter{bus: e.Events}, log)
	e.exchange = exchange.NewScheduler(agreementRepo, e.registry, e.simulator, &exchangeEmitter{bus: e.Events}, cfg.Engine.ExchangeInterval, log)
	e.simulator.SetHandlers(e.orders, e.exchange)

	e.facade = metrics.NewFacade(e.orders, e.registry, e.simulator, e.exchange)
	e.recorder = metrics.NewRecorder(e.facade)
	e.nodeState = nodestate.NewManager(e.registry, e.simulator, c.Redis, log)

	if cfg.Messaging.Enabled && c.MsgClient != nil {
		e.egress = messaging.NewEgress(e.outbox, cfg.Messaging.OutboundTopic)
		e.drainer = messaging.NewOutboxDrainer(e.outbox, c.MsgClient, e.recorder, cfg.Messaging.OutboxDrainInterval, log)
		if cfg.Messaging.InboundTopic != "" {
			e.consumer = messaging.NewConsumer(c.MsgClient, cfg.Messaging.InboundTopic,
				messaging.NewInboundHandler(e.simulator, log), log)
		}
	}

	e.wireEventHandlers()

	loaded, err := e.registry.Load()
	if err != nil {
		return nil, fmt.Errorf("engine: load nodes: %w", err)
	}
	seed := cfg.Nodes
	if len(seed) == 0 {
		seed = registry.SeedNodes()
	}
	added, err := e.registry.Seed(seed)
	if err != nil {
		return nil, fmt.Errorf("engine: seed nodes: %w", err)
	}
	e.sugar.Infof("registry ready: %d loaded, %d seeded", loaded, added)
	return e, nil
}

// Start launches the dispatcher, the scheduler and, when configured, the
// outbox drainer and inbound consumer.
func (e *Engine) Start() {
	if err := e.nodeState.SyncRedis(); err != nil {
		e.sugar.Warnf("redis sync: %v", err)
	}
	e.simulator.Start()
	e.exchange.Start()
	if e.consumer != nil {
		if err := e.consumer.Start(); err != nil {
			e.sugar.Errorf("inbound subscribe: %v", err)
		}
	}
	if e.drainer != nil {
		e.drainer.Start()
	}
	if e.msgClient != nil {
		e.checkConnectionStatus()
		e.wg.Add(1)
		go e.connectionHealthLoop()
	}
	e.sugar.Infof("started")
}

// Stop halts every background loop. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopChan) })
	e.wg.Wait()
	if e.drainer != nil {
		e.drainer.Stop()
	}
	e.exchange.Stop()
	e.simulator.Stop()
	e.sugar.Infof("stopped")
}

// Accessors
func (e *Engine) AppConfig() *config.Config               { return e.cfg }
func (e *Engine) DB() *store.DB                           { return e.db }
func (e *Engine) Outbox() store.Outbox                    { return e.outbox }
func (e *Engine) Registry() *registry.Registry            { return e.registry }
func (e *Engine) Router() *routing.Router                 { return e.router }
func (e *Engine) Simulator() *dispatch.Simulator          { return e.simulator }
func (e *Engine) Orders() *orders.Manager                 { return e.orders }
func (e *Engine) Exchange() *exchange.Scheduler           { return e.exchange }
func (e *Engine) Metrics() *metrics.Facade                { return e.facade }
func (e *Engine) Recorder() *metrics.Recorder             { return e.recorder }
func (e *Engine) NodeState() *nodestate.Manager           { return e.nodeState }
func (e *Engine) OutboxDrainer() *messaging.OutboxDrainer { return e.drainer }

// CreateOrder prices and stores a new order and notifies its destination.
func (e *Engine) CreateOrder(req orders.CreateRequest) (model.Order, error) {
	return e.orders.Create(req)
}

func (e *Engine) GetOrder(id string) (model.Order, error) {
	return e.orders.Get(id)
}

func (e *Engine) ListOrders() ([]model.Order, error) {
	return e.orders.List()
}

func (e *Engine) ListNodes() []model.Node {
	return e.registry.List()
}

// Summary returns the metrics snapshot.
func (e *Engine) Summary() (metrics.Summary, error) {
	return e.facade.Summary()
}

// MessagingConnected reports whether a broker client is attached and connected.
func (e *Engine) MessagingConnected() bool {
	return e.msgClient != nil && e.msgClient.IsConnected()
}

func (e *Engine) checkConnectionStatus() {
	if e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
		}
	} else if e.msgConnected {
		e.msgConnected = false
		e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
	}
}

func (e *Engine) connectionHealthLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}
