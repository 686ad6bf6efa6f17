// Package gateway is the HTTP front end of the federation service.
//
// It speaks the FDSN dataselect conventions on the wire: GET requests with
// net/sta/loc/cha selector parameters (comma lists expand to their cross
// product) or POST bodies of key=value option lines followed by selector
// lines. Parsed requests become query.Query values that the engine
// federates across upstream archives.
//
// # Endpoints
//
//	/fdsnws/dataselect/1/query    GET and POST federation requests
//	/fdsnws/dataselect/1/version  service version as bare text
//	/health                       aggregate component health as JSON
//
// Responses use 200 with the merged payload, the query's nodata status
// (204 or 404) when nothing matched, and FDSN-style plain-text error
// documents otherwise. Prometheus metrics are served separately by
// metric.Server.
//
// # Quick Start
//
//	srv, err := gateway.NewServer(cfg, processor, monitor, logger, registry)
//	if err != nil {
//		return err
//	}
//	if err := srv.Setup(); err != nil {
//		return err
//	}
//	ready := make(chan struct{})
//	go func() { _ = srv.Start(ctx, ready) }()
//	<-ready
package gateway
