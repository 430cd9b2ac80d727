// Package domain holds the wire types exchanged between peers and the
// store and service contracts the rest of the application is written
// against.
package domain
