package blockio

import "golang.org/x/sys/unix"

const directIOFlag = unix.O_DIRECT
