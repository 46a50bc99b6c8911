// Package output writes generated service workers to their destination.
//
// Destinations are file paths or s3://bucket/key URLs:
//
//	w, err := output.ForDestination(dest, s3Client)
//	err = w.Write(ctx, dest, []byte(script))
//
// FileWriter replaces files atomically so a web server never serves a
// half-written worker. S3Writer uploads with a no-cache Cache-Control header
// so browsers check for a new worker on every navigation.
package output
