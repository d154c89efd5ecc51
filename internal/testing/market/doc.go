// Package market holds end-to-end marketplace tests: listing, bidding,
// buying, claiming and cancellation, driven through the test environment.
package market
