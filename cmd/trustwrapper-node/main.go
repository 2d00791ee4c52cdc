// trustwrapper-node is the service entry point: it loads configuration,
// wires every internal component into an Orchestrator, exposes an HTTP API
// for submitting verification requests, and serves Prometheus metrics —
// the same load-config / wire-components / serve-until-signal shape as the
// teacher's main.go, reduced to TrustWrapper's own component graph instead
// of Certen's Accumulate/Ethereum/batch/Firestore wiring.
package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lamassu-labs/trustwrapper/internal/bridge"
	"github.com/lamassu-labs/trustwrapper/internal/bridgehealth"
	"github.com/lamassu-labs/trustwrapper/internal/chainops"
	"github.com/lamassu-labs/trustwrapper/internal/commitment"
	"github.com/lamassu-labs/trustwrapper/internal/commitment/hashproof"
	"github.com/lamassu-labs/trustwrapper/internal/config"
	"github.com/lamassu-labs/trustwrapper/internal/connpool"
	"github.com/lamassu-labs/trustwrapper/internal/consensus"
	"github.com/lamassu-labs/trustwrapper/internal/detect"
	"github.com/lamassu-labs/trustwrapper/internal/logging"
	"github.com/lamassu-labs/trustwrapper/internal/model"
	"github.com/lamassu-labs/trustwrapper/internal/oracle"
	"github.com/lamassu-labs/trustwrapper/internal/orchestrator"
	"github.com/lamassu-labs/trustwrapper/internal/persistence"
	"github.com/lamassu-labs/trustwrapper/internal/threshold"
)

func main() {
	configPath := flag.String("config", "", "unused placeholder for a future file-based config source; configuration is read from TW_* environment variables")
	flag.Parse()
	_ = configPath

	logger := logging.New("node")
	logger.Printf("starting trustwrapper-node")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	reg := prometheus.NewRegistry()

	pool := connpool.New(cfg.ConnPoolConfig(), logging.New("connpool"))
	broker := bridge.New(1000, logging.New("bridge"))
	engine := consensus.New()
	thresholds := threshold.New()
	commitGen := commitment.NewGenerator(hashproof.New())
	aggregator := oracle.NewAggregator(time.Duration(cfg.TimeoutSeconds) * time.Second)
	detector := detect.NewRegistry()

	adapters := buildChainAdapters(cfg.ParticipatingChains, logger)
	bridgeAdapters := make(map[string]bridge.Adapter, len(adapters))
	routes := make([]model.BridgeRoute, 0, len(adapters))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, a := range adapters {
		if err := pool.Add(ctx, a); err != nil {
			logger.Printf("add chain adapter %s: %v", a.ChainType(), err)
			continue
		}
		bridgeAdapters[a.ChainType()] = chainops.NewBridgeAdapter(a)
		routes = append(routes, model.BridgeRoute{
			SourceChain: "orchestrator",
			TargetChain: a.ChainType(),
			HealthScore: 1,
			Active:      true,
		})
	}

	broker.Initialize(bridgeAdapters, routes)
	if err := broker.Start(); err != nil {
		logger.Fatalf("start bridge broker: %v", err)
	}
	defer broker.Stop()

	if err := pool.Start(); err != nil {
		logger.Fatalf("start connection pool: %v", err)
	}
	defer pool.Stop()

	collector, err := bridgehealth.NewCollector(reg)
	if err != nil {
		logger.Fatalf("create bridge health collector: %v", err)
	}
	monitor := bridgehealth.NewMonitor(bridgehealth.DefaultConfig(), broker, collector, logging.New("bridgehealth"))
	if err := monitor.Start(); err != nil {
		logger.Fatalf("start bridge health monitor: %v", err)
	}
	defer monitor.Stop()

	store, err := openStore(cfg)
	if err != nil {
		logger.Printf("persistence store unavailable, results will not be durable: %v", err)
	} else {
		defer store.Close()
	}

	orch := orchestrator.New(detector, aggregator, commitGen, pool, broker, engine, thresholds, nil, logging.New("orchestrator"))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/v1/verify", verifyHandler(orch, cfg, store, logger))

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		logger.Printf("listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}
	go func() {
		logger.Printf("serving metrics on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Printf("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("metrics shutdown: %v", err)
	}
	cancel()
	pool.DisconnectAll(context.Background())
	logger.Printf("stopped")
}

// buildChainAdapters constructs one ChainOps driver per configured chain
// name, using each chain family's own key material conventions: an
// ephemeral Ethereum key for EVM-family chains, a fresh CometBFT validator
// key for cosmos-style chains, and an in-process Ed25519 key otherwise.
// Keys are generated fresh at startup rather than loaded from disk, since
// C6 adapters only need to sign verification submissions, not hold funds.
func buildChainAdapters(chains []string, logger *log.Logger) []chainops.ChainOps {
	var adapters []chainops.ChainOps
	for _, name := range chains {
		switch name {
		case "ethereum-style":
			key, err := crypto.GenerateKey()
			if err != nil {
				logger.Printf("generate ethereum key for %s: %v", name, err)
				continue
			}
			adapters = append(adapters, newEthereumAdapter(name, key))
		case "cosmos-style":
			adapters = append(adapters, chainops.NewCosmosVoteAdapter(name, nil))
		default:
			a, err := chainops.NewSolanaStyleAdapter(name)
			if err != nil {
				logger.Printf("create adapter for %s: %v", name, err)
				continue
			}
			adapters = append(adapters, a)
		}
	}
	return adapters
}

func newEthereumAdapter(chainID string, key *ecdsa.PrivateKey) chainops.ChainOps {
	return chainops.NewEthereumAdapter(chainID, key)
}

// openStore opens the on-disk GoLevelDB-backed result store under the
// directory named by TW_DATA_DIR, defaulting to the working directory. An empty directory
// still yields a usable store; LevelDB creates it on first write.
func openStore(cfg *config.Config) (*persistence.Store, error) {
	_ = cfg
	dataDir := os.Getenv("TW_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	db, err := dbm.NewGoLevelDB("trustwrapper", dataDir)
	if err != nil {
		return nil, fmt.Errorf("open leveldb store: %w", err)
	}
	return persistence.NewStore(db), nil
}

func verifyHandler(orch *orchestrator.Orchestrator, cfg *config.Config, store *persistence.Store, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			ArtifactType string `json:"artifact_type"`
			Data         []byte `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		artifact := &model.Artifact{Type: model.ArtifactType(req.ArtifactType), Data: req.Data}
		policy := cfg.VerificationPolicy()

		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(cfg.TimeoutSeconds)*time.Second)
		defer cancel()

		result, err := orch.Verify(ctx, artifact, model.VerificationContext{Clock: time.Now()}, policy)
		if err != nil {
			logger.Printf("verify failed: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if store != nil {
			if err := store.Put(r.Context(), result); err != nil {
				logger.Printf("persist result %s: %v", result.RequestID, err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}
