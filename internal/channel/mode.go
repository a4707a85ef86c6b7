//go:build !debug

package channel

const forceUnbuffered = false
