// Package router is the front controller of the template: it turns
// CGI-style request metadata into a RequestContext, matches it against an
// ordered Table of routes and invokes the winning handler through a
// dependency Container.
//
// Handlers take no arguments. They write status, headers and body into a
// Response obtained from the container; the host flushes that Response
// once dispatch returns. Anything that does not match a route goes to the
// table's fallback.
//
//	table := router.NewTable()
//	_ = table.Get("/healthz", func() { resp.WriteString("ok") }, "health")
//	_ = table.SetFallback(func() { resp.SetStatus(404); resp.WriteString("404") })
//	_, err := router.Dispatch(router.FromEnv(env), table, container)
package router
