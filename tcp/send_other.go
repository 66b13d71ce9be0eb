//go:build unix && !linux

package tcp

const sendFlags = 0
