// Package pcapnic replays a capture file as if it were a network device and
// records whatever is transmitted into another capture file.
package pcapnic

import (
	"bufio"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

const (
	DefaultMaxFrames = 4096
	snapLen          = 65535
)

type frame struct {
	data []byte
	ts   time.Time
}

// Device holds every input frame in memory. It never blocks: a frame is
// pending until the queue has been read out. InterruptPending may run on a
// watcher goroutine while a single worker receives and transmits.
type Device struct {
	queue   []frame
	next    atomic.Int64
	skipped int

	// timestamp of the last received frame, reused for the reply
	last time.Time

	w      *pcapgo.Writer
	flush  func() error
	closer []io.Closer

	transmitted atomic.Int64
}

// New reads up to maxFrames Ethernet frames from r. Transmitted frames are
// written to w as a pcap stream; a nil w discards them.
func New(r io.Reader, w io.Writer, maxFrames int) (*Device, error) {
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}

	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "read pcap header failed")
	}
	if reader.LinkType() != layers.LinkTypeEthernet {
		return nil, errors.Errorf("unsupported link type %s", reader.LinkType())
	}

	d := &Device{}
	for {
		data, ci, err := reader.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read pcap packet failed")
		}
		if len(d.queue) == maxFrames {
			d.skipped++
			continue
		}
		d.queue = append(d.queue, frame{data: data, ts: ci.Timestamp})
	}

	if w == nil {
		w = io.Discard
	}
	d.w = pcapgo.NewWriter(w)
	if err = d.w.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, errors.Wrap(err, "write pcap header failed")
	}
	return d, nil
}

// Open replays the capture at in and records into out. An empty out
// discards transmitted frames.
func Open(in, out string, maxFrames int) (*Device, error) {
	fin, err := os.Open(in)
	if err != nil {
		return nil, errors.Wrap(err, "open pcap input failed")
	}
	defer fin.Close()

	var w io.Writer
	var fout *os.File
	var bw *bufio.Writer
	if out != "" {
		fout, err = os.Create(out)
		if err != nil {
			return nil, errors.Wrap(err, "create pcap output failed")
		}
		bw = bufio.NewWriter(fout)
		w = bw
	}

	d, err := New(bufio.NewReader(fin), w, maxFrames)
	if err != nil {
		if fout != nil {
			_ = fout.Close()
		}
		return nil, err
	}
	if fout != nil {
		d.flush = bw.Flush
		d.closer = append(d.closer, fout)
	}
	if d.skipped > 0 {
		log.WithField("module", "pcapnic").Warnf("%s: kept %d frames, skipped %d", in, len(d.queue), d.skipped)
	}
	return d, nil
}

func (d *Device) InterruptPending() bool {
	return d.next.Load() < int64(len(d.queue))
}

func (d *Device) Receive(b []byte) (int, error) {
	i := d.next.Load()
	if i >= int64(len(d.queue)) {
		return 0, io.EOF
	}
	f := d.queue[i]
	d.next.Inc()
	d.last = f.ts
	if len(f.data) > len(b) {
		return 0, errors.Errorf("frame of %d bytes exceeds buffer of %d", len(f.data), len(b))
	}
	return copy(b, f.data), nil
}

func (d *Device) Transmit(b []byte) error {
	ci := gopacket.CaptureInfo{
		Timestamp:     d.last,
		CaptureLength: len(b),
		Length:        len(b),
	}
	if err := d.w.WritePacket(ci, b); err != nil {
		return errors.Wrap(err, "write pcap packet failed")
	}
	d.transmitted.Inc()
	return nil
}

// Frames returns how many frames were queued.
func (d *Device) Frames() int { return len(d.queue) }

// Skipped returns how many frames did not fit the queue.
func (d *Device) Skipped() int { return d.skipped }

func (d *Device) Transmitted() int { return int(d.transmitted.Load()) }

// Close flushes the output.
func (d *Device) Close() error {
	if d.flush != nil {
		if err := d.flush(); err != nil {
			return errors.Wrap(err, "flush pcap output failed")
		}
	}
	for _, c := range d.closer {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return nil
}
