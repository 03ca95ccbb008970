package blockio

import (
	"errors"
	"fmt"
	"io"

	"github.com/dargueta/cikada"
)

// maxConsecutiveEmptyTransfers is the number of times in a row a Read or Write
// may transfer nothing without reporting an error before we give up.
const maxConsecutiveEmptyTransfers = 100

// ReadExact fills `buffer` from `source`, issuing as many reads as needed. A
// single read from a pipe or a raw device may legitimately return fewer bytes
// than asked for.
//
// It returns the number of bytes read along with:
//
//   - nil if the buffer was filled.
//   - [io.EOF] itself if the source was already exhausted and nothing was read.
//   - [cikada.ErrShortTransfer] wrapping [io.ErrUnexpectedEOF] if the source ran
//     out partway through.
//   - [cikada.ErrIOFailed] wrapping the original error for anything else.
func ReadExact(source io.Reader, buffer []byte) (int, error) {
	totalRead := 0
	emptyReads := 0

	for totalRead < len(buffer) {
		n, err := source.Read(buffer[totalRead:])
		totalRead += n

		if err != nil {
			if !errors.Is(err, io.EOF) {
				return totalRead, cikada.ErrIOFailed.Wrap(err)
			}
			if totalRead == 0 {
				return 0, io.EOF
			}
			if totalRead < len(buffer) {
				return totalRead, shortTransfer(io.ErrUnexpectedEOF, totalRead, len(buffer), "read")
			}
			return totalRead, nil
		}

		if n == 0 {
			emptyReads++
			if emptyReads >= maxConsecutiveEmptyTransfers {
				return totalRead, cikada.ErrIOFailed.Wrap(io.ErrNoProgress)
			}
		} else {
			emptyReads = 0
		}
	}
	return totalRead, nil
}

// WriteExact writes all of `buffer` to `sink`, issuing as many writes as needed.
// It returns the number of bytes written, and either nil if everything was
// written, [cikada.ErrShortTransfer] wrapping [io.ErrShortWrite] if the sink
// stopped accepting data, or [cikada.ErrIOFailed] for any other failure.
func WriteExact(sink io.Writer, buffer []byte) (int, error) {
	totalWritten := 0
	emptyWrites := 0

	for totalWritten < len(buffer) {
		n, err := sink.Write(buffer[totalWritten:])
		totalWritten += n

		if err != nil {
			if errors.Is(err, io.ErrShortWrite) {
				return totalWritten, shortTransfer(io.ErrShortWrite, totalWritten, len(buffer), "write")
			}
			return totalWritten, cikada.ErrIOFailed.Wrap(err)
		}

		if n == 0 {
			emptyWrites++
			if emptyWrites >= maxConsecutiveEmptyTransfers {
				return totalWritten, shortTransfer(io.ErrShortWrite, totalWritten, len(buffer), "write")
			}
		} else {
			emptyWrites = 0
		}
	}
	return totalWritten, nil
}

func shortTransfer(cause error, transferred, expected int, what string) error {
	return cikada.ErrShortTransfer.Wrap(cause).WithMessage(
		fmt.Sprintf("%s %d of %d bytes", what, transferred, expected))
}
