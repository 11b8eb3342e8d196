// Package drive provides a client for the Google Drive API v3.
//
// The client covers the operations exposed as MCP tools: listing and searching
// files, reading metadata, uploading, downloading (with export of Google
// Workspace documents), deleting, creating folders, sharing with a user and a
// read-only connectivity check.
//
// Every upstream failure is classified through the errs package: a 404 becomes
// errs.NotFoundError and anything else errs.APIError carrying the HTTP status.
// Argument problems are errs.ValidationError and are detected before a request
// is sent.
//
// Listing is strictly one page per call. The next-page token is returned as the
// API produced it and must be handed back unchanged to continue.
//
//	client, err := drive.NewClient(ctx, drive.Config{}, sa.ClientOptions()...)
//	if err != nil {
//	    return err
//	}
//	page, err := client.ListFiles(ctx, drive.ListOptions{PageSize: 50, Query: "name contains 'report'"})
package drive
