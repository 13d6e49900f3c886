// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cobaltcore-dev/flavor-matcher/internal/api"
	"github.com/cobaltcore-dev/flavor-matcher/internal/classification"
	"github.com/cobaltcore-dev/flavor-matcher/internal/conf"
	"github.com/cobaltcore-dev/flavor-matcher/internal/db"
	"github.com/cobaltcore-dev/flavor-matcher/internal/enrollment"
	"github.com/cobaltcore-dev/flavor-matcher/internal/flavor"
	"github.com/cobaltcore-dev/flavor-matcher/internal/keystone"
	"github.com/cobaltcore-dev/flavor-matcher/internal/monitoring"
	"github.com/cobaltcore-dev/flavor-matcher/internal/mqtt"
	"github.com/cobaltcore-dev/flavor-matcher/internal/openstack/ironic"
	"github.com/cobaltcore-dev/flavor-matcher/internal/openstack/nova"
	"github.com/cobaltcore-dev/flavor-matcher/internal/reloader"
	"github.com/sapcc/go-api-declarations/bininfo"
	"github.com/sapcc/go-bits/httpext"
	"github.com/sapcc/go-bits/must"
	"go.uber.org/automaxprocs/maxprocs"
)

// Run the prometheus metrics server for monitoring.
func runMonitoringServer(ctx context.Context, registry *monitoring.Registry, config conf.MonitoringConfig) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	slog.Info("metrics listening", "port", config.Port)
	addr := fmt.Sprintf(":%d", config.Port)
	if err := httpext.ListenAndServeContext(ctx, addr, mux); err != nil {
		panic(err)
	}
}

// Message printed if the flavor matcher is started with unknown arguments.
const usage = `usage: flavor-matcher <task>

  services:
  api            Serve classification requests with a http API.
  sync-flavors   Keep the nova flavors in sync with the flavor specs.

  commands:
  enroll-nodes   Classify ironic nodes and set their resource class.
  check-flavors  Load the flavor specs and print a summary.
  classify       Classify the machine described by a json request on stdin.
`

func main() {
	// If called with `--version`, report version and exit (the Dockerfile
	// uses this to check if the binary was built correctly)
	bininfo.HandleVersionArgument()

	if len(os.Args) != 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	taskName := os.Args[1]
	bininfo.SetTaskName(taskName)

	config := conf.GetConfigOrDie()
	must.Succeed(config.Validate())

	// The local commands print their result on stdout.
	switch taskName {
	case "check-flavors":
		slog.SetDefault(slog.New(config.LoggingConfig.Handler(os.Stderr)))
		os.Exit(checkFlavors(os.Stdout, os.Stderr, config.FlavorsConfig.Dir))
	case "classify":
		slog.SetDefault(slog.New(config.LoggingConfig.Handler(os.Stderr)))
		catalog := flavor.NewCatalog(must.Return(flavor.LoadDir(config.FlavorsConfig.Dir)))
		registry := monitoring.NewRegistry(config.MonitoringConfig)
		classifier := classification.NewClassifier(flavor.NewMatcher(catalog), classification.NewClassificationMonitor(registry))
		os.Exit(classifyStdin(context.Background(), os.Stdin, os.Stdout, os.Stderr, classifier))
	}

	config.LoggingConfig.SetDefaultLogger()

	// Set runtime concurrency to match CPU limit imposed by Kubernetes
	undoMaxprocs, err := maxprocs.Set(maxprocs.Logger(slog.Debug))
	if err != nil {
		panic(err)
	}
	defer undoMaxprocs()

	// Override User-Agent header for all requests made by this process
	// (logs will show e.g. "flavor-matcher/d0c9faa" instead of "Go-http-client/2.0")
	wrap := httpext.WrapTransport(&http.DefaultTransport)
	wrap.SetOverrideUserAgent(bininfo.Component(), bininfo.VersionOr("rolling"))

	// This context will gracefully shutdown when the process receives the
	// standard shutdown signal SIGINT, with a 10-second delay to allow
	// Kubernetes to stop sending new requests well before the process starts
	// to shut down.
	ctx := httpext.ContextWithSIGINT(context.Background(), 10*time.Second)

	registry := monitoring.NewRegistry(config.MonitoringConfig)

	// The flavor specs are required by every task. A broken directory at
	// startup is fatal, later reloads keep the last good catalog.
	catalog := flavor.NewCatalog(must.Return(flavor.LoadDir(config.FlavorsConfig.Dir)))
	slog.Info("loaded flavors", "dir", config.FlavorsConfig.Dir, "count", catalog.Len())
	cooldown := time.Duration(config.ReloadCooldownSeconds) * time.Second
	flavorReloader := reloader.New(config.FlavorsConfig.Dir, catalog, cooldown, reloader.NewReloaderMonitor(registry))

	switch taskName {
	case "api":
		go runMonitoringServer(ctx, registry, config.MonitoringConfig)
		go runReloader(ctx, flavorReloader)
		runAPI(ctx, config, registry, catalog)
	case "sync-flavors":
		go runMonitoringServer(ctx, registry, config.MonitoringConfig)
		runSyncFlavors(ctx, config, registry, catalog, flavorReloader)
	case "enroll-nodes":
		os.Exit(runEnrollNodes(ctx, config, registry, catalog))
	default:
		fmt.Fprint(os.Stderr, usage)
		panic("unknown task: " + taskName)
	}
}

func runReloader(ctx context.Context, r *reloader.Reloader) {
	if err := r.Run(ctx); err != nil {
		slog.Error("flavor reloader stopped", "err", err)
	}
}

// Build the classifier with the history store and the mqtt publisher,
// if they are configured. The returned cleanup closes the connections.
func newClassifier(ctx context.Context, config conf.Config, registry *monitoring.Registry, catalog *flavor.Catalog) (*classification.Classifier, *classification.Store, func()) {
	var opts []classification.Option
	var store *classification.Store
	var cleanups []func()

	if config.DBConfig.Host != "" {
		database := must.Return(db.NewPostgresDB(ctx, config.DBConfig, db.NewDBMonitor(registry)))
		cleanups = append(cleanups, database.Close)
		store = must.Return(classification.NewStore(&database))
		opts = append(opts, classification.WithRecorder(store))
	} else {
		slog.Info("no database configured, decisions are not recorded")
	}

	if config.MQTTConfig.URL != "" {
		mqttClient := mqtt.NewClientWithConfig(config.MQTTConfig, mqtt.NewMQTTMonitor(registry))
		if err := mqttClient.Connect(); err != nil {
			panic("failed to connect to mqtt broker: " + err.Error())
		}
		cleanups = append(cleanups, mqttClient.Disconnect)
		opts = append(opts, classification.WithPublisher(mqttClient, config.MQTTConfig.Topic))
	} else {
		slog.Info("no mqtt broker configured, decisions are not published")
	}

	monitor := classification.NewClassificationMonitor(registry)
	classifier := classification.NewClassifier(flavor.NewMatcher(catalog), monitor, opts...)
	cleanup := func() {
		for _, c := range cleanups {
			c()
		}
	}
	return classifier, store, cleanup
}

func newEnroller(ctx context.Context, config conf.Config, registry *monitoring.Registry, classifier *classification.Classifier) *enrollment.Enroller {
	keystoneAPI := keystone.NewKeystoneAPI(config.KeystoneConfig)
	ironicAPI := ironic.NewIronicAPI(ironic.NewIronicMonitor(registry), keystoneAPI, config.IronicConfig)
	must.Succeed(ironicAPI.Init(ctx))
	return enrollment.NewEnroller(ironicAPI, classifier, config.IronicConfig, enrollment.NewEnrollmentMonitor(registry))
}

func runAPI(ctx context.Context, config conf.Config, registry *monitoring.Registry, catalog *flavor.Catalog) {
	classifier, store, cleanup := newClassifier(ctx, config, registry, catalog)
	defer cleanup()

	var opts []api.Option
	if store != nil {
		opts = append(opts, api.WithHistory(store))
	}
	if config.HasKeystone() {
		opts = append(opts, api.WithEnroller(newEnroller(ctx, config, registry, classifier)))
	} else {
		slog.Info("no keystone configured, node enrollment is disabled")
	}

	mux := http.NewServeMux()
	api.NewAPI(config.APIConfig, registry, classifier, opts...).Init(mux)

	// Run the api server after all handlers have been registered to the mux.
	addr := fmt.Sprintf(":%d", config.APIConfig.Port)
	slog.Info("api listening", "port", config.APIConfig.Port)
	if err := httpext.ListenAndServeContext(ctx, addr, mux); err != nil {
		panic(err)
	}
}

func runSyncFlavors(ctx context.Context, config conf.Config, registry *monitoring.Registry, catalog *flavor.Catalog, r *reloader.Reloader) {
	if !config.HasKeystone() {
		panic("sync-flavors needs a keystone configuration")
	}
	monitor := nova.NewNovaMonitor(registry)
	keystoneAPI := keystone.NewKeystoneAPI(config.KeystoneConfig)
	novaAPI := nova.NewNovaAPI(monitor, keystoneAPI, config.NovaConfig)
	must.Succeed(novaAPI.Init(ctx))

	syncer := nova.NewFlavorSyncer(novaAPI, catalog, config.NovaConfig, monitor)
	r.OnReload(func([]flavor.Spec) { syncer.Trigger() })
	go runReloader(ctx, r)
	syncer.Run(ctx)
}

func runEnrollNodes(ctx context.Context, config conf.Config, registry *monitoring.Registry, catalog *flavor.Catalog) int {
	if !config.HasKeystone() {
		panic("enroll-nodes needs a keystone configuration")
	}
	classifier, _, cleanup := newClassifier(ctx, config, registry, catalog)
	defer cleanup()
	enroller := newEnroller(ctx, config, registry, classifier)
	return enrollNodes(ctx, os.Stdout, os.Stderr, enroller)
}
