// Package server runs an http.Handler with signal-driven graceful shutdown.
//
//	srv := server.New(hs, server.WithHost(":8008"))
//	if err := srv.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
