// Package backend provides a client for the PikPak downloader backend API.
//
// The backend wraps a PikPak account behind a small JSON API under /api.
// This package exposes one method per endpoint and keeps the session cookie
// in a cookie jar, so a single Client represents one logged-in user.
//
// # Usage
//
//	client, err := backend.NewClient("http://localhost:5000", logger,
//		backend.WithTimeout(30*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if _, err := client.Login(ctx, "user", "secret"); err != nil {
//		log.Fatal(err)
//	}
//
//	tasks, err := client.ListTasks(ctx, backend.PhaseRunning, backend.PhasePending)
//
// # Error Handling
//
// Calls never retry. Failures fall into three groups:
//
//   - ErrNoConnection: the request never got an answer
//   - *APIError: the backend answered with a non-2xx status; Message carries
//     the server's "error" field
//   - ErrInvalidResponse: a 2xx body that could not be decoded
//
// Missing fields in otherwise valid payloads decode to zero values and empty
// slices rather than errors.
package backend
