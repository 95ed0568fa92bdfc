/*
Package trackersdk is the Go client for the ProgressIQ task tracking API.

# Overview

A Client holds the base URL and the logged-in Session. After Login every
request carries the session token as a bearer token:

	client := trackersdk.NewClient("http://localhost:8080")
	client.OnUnauthorized = func() { showLogin() }

	if _, err := client.Login(ctx, "lead@example.com", password, ""); err != nil {
		return err
	}
	tasks, err := client.LeaderTasks(ctx, client.Session().Email)

# Errors

Non-2xx responses are returned as *APIError:

	var apiErr *trackersdk.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		// task changed under us; refetch
	}

Any 401 clears the session and calls OnUnauthorized before the error is
returned. Requests that get no response at all wrap ErrNetwork and are logged
to Client.Logger. Nothing is retried.

# Files

Submitted work is referenced by a server-relative fileUrl. Use
ResolveFileURL to build a link on the API host:

	href := client.ResolveFileURL(task.FileURL)

SubmitWork refuses a nil file with ErrFileRequired before sending anything.
*/
package trackersdk
