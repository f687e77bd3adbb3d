/*
Package gemini implements the server side of the Gemini protocol.

A request is a single absolute gemini URI followed by CRLF. Server reads
it under a short watchdog, validates it, and answers invalid requests
with a 50 response whose meta names the problem. Valid requests are
passed to the server's Handler:

	var server gemini.Server
	if err := server.Certificates.Load("/var/lib/gemini/keys"); err != nil {
		// handle error
	}
	server.Handler = gemini.HandlerFunc(func(ctx context.Context, w *gemini.ResponseWriter, r *gemini.Request) {
		fmt.Fprint(w, "# Hello, world!")
	})

Writes to a ResponseWriter without a prior WriteHeader send a 20 header
with the gemtext media type. To start the server, call ListenAndServe:

	err := server.ListenAndServe()
	if err != nil {
		// handle error
	}

ReadResponse parses a response from the client side and is mostly useful
in tests.
*/
package gemini
