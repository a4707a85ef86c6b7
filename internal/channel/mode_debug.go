//go:build debug

package channel

const forceUnbuffered = true
