/*
Package observability exposes the dispatcher lifecycle as Prometheus metrics.

Metrics are registered on a dedicated registry so several engines can live in
one process. Hooks returns the LifecycleHooks that feed them:

	m := observability.NewMetrics()
	d := dispatch.New(reg, dispatch.WithHooks(m.Hooks()))
	http.Handle("/metrics", m.Handler())
*/
package observability
