// Command wideq-exporter serves prometheus metrics for the appliances on an
// LG ThinQ account. Client state comes from a state file written by
// wideq-cli, optionally mirrored to S3.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/thinq"
)

// deviceOnline tracks each dashboard device by id, alias and type code.
var deviceOnline = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "wideq_device_online",
	Help: "Whether the cloud reports the device connected (1=online)",
}, []string{"device", "alias", "type"})

func main() {
	httpAddr := envOrDefault("WIDEQ_HTTP_ADDR", ":8080")
	statePath := envOrDefault("WIDEQ_STATE", "wideq_state.json")
	refreshEvery := envDuration("WIDEQ_REFRESH_INTERVAL", time.Minute)

	store, err := buildStore(statePath)
	if err != nil {
		logrus.WithError(err).Fatal("configuring state store")
	}

	ctx := context.Background()
	client, err := loadClient(ctx, store)
	if err != nil {
		logrus.WithError(err).Fatal("loading client state")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(thinq.MetricsCollectors()...)
	registry.MustRegister(device.MetricsCollectors()...)
	registry.MustRegister(deviceOnline)
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "wideq_build_info",
		Help: "Build information",
	}, func() float64 { return 1 }))

	go refreshLoop(ctx, client, store, refreshEvery)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logrus.WithField("addr", httpAddr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil {
		logrus.WithError(err).Fatal("http serve")
	}
}

// refreshLoop keeps the device dashboard and the auth token warm, persisting
// the rotated refresh token after every successful pass.
func refreshLoop(ctx context.Context, client *thinq.Client, store thinq.TokenStore, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := client.RefreshDevices(ctx); err != nil {
			logrus.WithError(err).Warning("refreshing devices")
			continue
		}
		updateDeviceGauges(client)
		if err := saveClient(ctx, store, client); err != nil {
			logrus.WithError(err).Warning("persisting client state")
		}
	}
}

func updateDeviceGauges(client *thinq.Client) {
	for _, info := range client.Devices() {
		online := 0.0
		if info.IsOnline() {
			online = 1
		}
		deviceOnline.WithLabelValues(
			info.ID(), info.Name(), strconv.Itoa(int(info.Type()))).Set(online)
	}
}

func buildStore(statePath string) (thinq.TokenStore, error) {
	if endpoint := os.Getenv("WIDEQ_S3_ENDPOINT"); endpoint != "" {
		return thinq.NewS3Store(thinq.S3StoreConfig{
			Endpoint:  endpoint,
			Bucket:    os.Getenv("WIDEQ_S3_BUCKET"),
			Prefix:    os.Getenv("WIDEQ_S3_PREFIX"),
			Region:    os.Getenv("WIDEQ_S3_REGION"),
			AccessKey: os.Getenv("WIDEQ_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("WIDEQ_S3_SECRET_KEY"),
		})
	}
	return &thinq.FileStore{Path: statePath}, nil
}

func loadClient(ctx context.Context, store thinq.TokenStore) (*thinq.Client, error) {
	blob, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	var state map[string]any
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, err
	}
	return thinq.Load(state, nil)
}

func saveClient(ctx context.Context, store thinq.TokenStore, client *thinq.Client) error {
	blob, err := json.Marshal(client.Dump())
	if err != nil {
		return err
	}
	return store.Save(ctx, blob)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
