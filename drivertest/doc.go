// Package drivertest holds the conformance suite every cloudstorage driver
// must pass. Driver packages call Run from their own tests with a factory
// for a fresh driver; the suite then exercises the uniform contract:
// container and blob lifecycle, atomic uploads, complete listings,
// prefix filtering, and the shared error taxonomy.
package drivertest
