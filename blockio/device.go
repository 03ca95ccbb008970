package blockio

import (
	"fmt"
	"os"

	"github.com/dargueta/cikada"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"
)

// Device is a raw disk (or disk image) opened for whole-track transfers.
type Device struct {
	file     *os.File
	writable bool
	sync     bool
}

// DeviceOptions controls how a device is opened and closed.
type DeviceOptions struct {
	// Direct opens the device with O_DIRECT, bypassing the page cache. Buffers
	// used for I/O must then be aligned; see [AllocateAligned].
	Direct bool
	// SyncOnClose flushes writes to stable storage before closing. It has no
	// effect on devices opened for reading.
	SyncOnClose bool
}

// OpenForReading opens the device at `path` read-only.
func OpenForReading(path string, options DeviceOptions) (*Device, error) {
	return openDevice(path, unix.O_RDONLY, false, options)
}

// OpenForWriting opens the device at `path` write-only. If `path` doesn't exist
// it's created as a regular file, so images can be restored without a real
// device.
func OpenForWriting(path string, options DeviceOptions) (*Device, error) {
	return openDevice(path, unix.O_WRONLY|unix.O_CREAT, true, options)
}

func openDevice(path string, flags int, writable bool, options DeviceOptions) (*Device, error) {
	flags |= unix.O_CLOEXEC
	if options.Direct {
		flags |= directIOFlag
	}

	fd, err := unix.Open(path, flags, 0o644)
	if err != nil {
		return nil, cikada.ErrIOFailed.Wrap(err).WithMessage(
			fmt.Sprintf("failed to open %q", path))
	}

	return &Device{
		file:     os.NewFile(uintptr(fd), path),
		writable: writable,
		sync:     options.SyncOnClose,
	}, nil
}

// Name returns the path the device was opened with.
func (device *Device) Name() string {
	return device.file.Name()
}

func (device *Device) Read(buffer []byte) (int, error) {
	return device.file.Read(buffer)
}

func (device *Device) Write(buffer []byte) (int, error) {
	return device.file.Write(buffer)
}

// Close closes the device, flushing it first if it was opened for writing with
// SyncOnClose. The device is closed even if flushing fails; all errors
// encountered are returned together.
func (device *Device) Close() error {
	var result error

	if device.writable && device.sync {
		err := unix.Fsync(int(device.file.Fd()))
		if err != nil {
			result = multierror.Append(
				result,
				fmt.Errorf("failed to flush %q: %w", device.Name(), err),
			)
		}
	}

	err := device.file.Close()
	if err != nil {
		result = multierror.Append(
			result,
			fmt.Errorf("failed to close %q: %w", device.Name(), err),
		)
	}

	if result != nil {
		return cikada.ErrIOFailed.Wrap(result)
	}
	return nil
}
