// Package database provides the Store used to track applied migrations in a version table, with
// an implementation for each supported database dialect.
//
// It's possible to implement a custom Store for a database that is not supported. To do so,
// implement the [Store] interface and pass it to the provider with goose.WithStore.
package database
