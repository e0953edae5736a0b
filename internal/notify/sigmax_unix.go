//go:build unix && !linux

package notify

const maxSignal = 31
