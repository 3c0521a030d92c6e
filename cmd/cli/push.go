package main

import (
	"fmt"
	"io"

	"github.com/yourusername/mediapull/internal/domain"
)

// packetSender delivers one packet to a mount position
type packetSender interface {
	SendPacket(position domain.MountPosition, pkt domain.Packet, data []byte) (packetResult, error)
}

// pushFile replays r as a START/TRANSFER/END packet sequence: the first chunk
// rides on START, the remaining chunks on TRANSFER, and END carries no data.
// It stops at the first packet the server does not accept.
func pushFile(sender packetSender, position domain.MountPosition, fileIndex uint32, size int64, r io.Reader, chunkSize int) (int, error) {
	if chunkSize <= 0 {
		return 0, fmt.Errorf("chunk size must be positive")
	}

	buf := make([]byte, chunkSize)
	var sent int64
	packets := 0
	event := domain.EventStart

	send := func(pkt domain.Packet, data []byte) error {
		packets++
		result, err := sender.SendPacket(position, pkt, data)
		if err != nil {
			return err
		}
		if !result.OK {
			return fmt.Errorf("%s packet rejected: %s", pkt.Event, result.Code)
		}
		return nil
	}

	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 || event == domain.EventStart {
			sent += int64(n)
			pkt := domain.Packet{
				Event:           event,
				FileIndex:       fileIndex,
				FileSize:        size,
				ProgressPercent: progress(sent, size),
			}
			if sendErr := send(pkt, buf[:n]); sendErr != nil {
				return packets, sendErr
			}
			event = domain.EventTransfer
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return packets, err
		}
	}

	end := domain.Packet{Event: domain.EventEnd, FileIndex: fileIndex, FileSize: size, ProgressPercent: 100}
	return packets, send(end, nil)
}

func progress(sent, size int64) float64 {
	if size <= 0 {
		return 0
	}
	return float64(sent) * 100 / float64(size)
}
