package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leonardotrapani/listenin/internal/api"
	"github.com/leonardotrapani/listenin/internal/apperr"
	"github.com/leonardotrapani/listenin/internal/bus"
	"github.com/leonardotrapani/listenin/internal/config"
	"github.com/leonardotrapani/listenin/internal/meeting"
	"github.com/leonardotrapani/listenin/internal/notify"
	"github.com/leonardotrapani/listenin/internal/pipeline"
	"github.com/leonardotrapani/listenin/internal/recording"
	"github.com/leonardotrapani/listenin/internal/store"
	"github.com/leonardotrapani/listenin/internal/summary"
	"github.com/leonardotrapani/listenin/internal/transcriber"
)

const shutdownTimeout = 5 * time.Second

type Daemon struct {
	coord    *pipeline.Coordinator
	closer   io.Closer
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
}

// New serves coord on the control and events sockets. closer, if set, is
// closed after the last recording has been summarized.
func New(coord *pipeline.Coordinator, closer io.Closer) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		coord:  coord,
		closer: closer,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Build wires the recorder, the transcription session, the summary pipeline
// and the meeting store from cfg.
func Build(cfg *config.Config) (*Daemon, error) {
	rec := recording.NewRecorder(recording.Config{
		SampleRate:        cfg.Recording.SampleRate,
		Channels:          cfg.Recording.Channels,
		FrameSamples:      cfg.Recording.FrameSamples,
		Device:            cfg.Recording.Device,
		ChannelBufferSize: cfg.Recording.ChannelBufferSize,
		LevelInterval:     cfg.Recording.LevelInterval,
	})

	client := api.NewClient(cfg.Client.Endpoint, nil)
	session := transcriber.NewSession(client, transcriber.Config{SendTimeout: cfg.Client.SendTimeout})

	st, err := store.Open(cfg.Storage.Path, cfg.Storage.MaxRecords)
	if err != nil {
		return nil, fmt.Errorf("open meeting store: %w", err)
	}

	coord := pipeline.New(rec, session, summary.New(client, st), notify.New(cfg.Notifications))
	return New(coord, st), nil
}

func (d *Daemon) Coordinator() *pipeline.Coordinator { return d.coord }

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	evLn, err := bus.ListenEvents()
	if err != nil {
		return err
	}
	defer evLn.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	events := &http.Server{Handler: d.eventsHandler()}
	go func() {
		if err := events.Serve(evLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Events server error: %v", err)
		}
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	defer d.shutdown(events)

	log.Printf("Daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("Shutdown requested")
				return nil
			}
			log.Printf("Accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) shutdown(events *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// an active recording is stopped and summarized before exit
	if err := d.coord.Close(ctx); err != nil {
		log.Printf("Pipeline close: %v", err)
	}

	if err := events.Shutdown(ctx); err != nil {
		log.Printf("Events server shutdown: %v", err)
	}
	if d.closer != nil {
		if err := d.closer.Close(); err != nil {
			log.Printf("Close store: %v", err)
		}
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	cmd, arg, err := bus.ParseCommand(line)
	if err != nil {
		fmt.Fprint(c, "ERR empty\n")
		return
	}

	switch cmd {
	case 't':
		d.reply(c, "toggled", d.toggle())
	case 'r':
		framework, ok := meeting.ParseFramework(arg)
		if arg == "" {
			framework, ok = meeting.General, true
		}
		if !ok {
			fmt.Fprintf(c, "ERR unknown framework %q\n", arg)
			return
		}
		d.reply(c, "started", d.coord.Start(d.ctx, framework))
	case 'p':
		d.reply(c, "paused", d.coord.Pause())
	case 'u':
		d.reply(c, "resumed", d.coord.Resume())
	case 'x':
		d.reply(c, "stopped", d.coord.Stop(d.ctx))
	case 'R':
		record, err := d.coord.RetrySummary(d.ctx)
		if err != nil {
			d.reply(c, "", err)
			return
		}
		fmt.Fprintf(c, "OK summary=%s\n", record.ID)
	case 's':
		s := d.coord.Snapshot()
		fmt.Fprintf(c, "STATUS status=%s framework=%s elapsed=%s progress=%d\n",
			s.Status, s.Framework, s.Elapsed.Round(time.Second), s.Progress)
	case 'j':
		data, err := json.Marshal(d.coord.Snapshot())
		if err != nil {
			fmt.Fprintf(c, "ERR encode: %v\n", err)
			return
		}
		fmt.Fprintf(c, "SNAPSHOT %s\n", data)
	case 'v':
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case 'q':
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Printf("Unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

// reply writes "OK <ok>" or an ERR line. Classified errors carry their kind
// and the user-facing message only.
func (d *Daemon) reply(c net.Conn, ok string, err error) {
	if err == nil {
		fmt.Fprintf(c, "OK %s\n", ok)
		return
	}
	if kind := apperr.KindOf(err); kind != "" {
		fmt.Fprintf(c, "ERR kind=%s %s\n", kind, apperr.UserMessage(err))
		return
	}
	fmt.Fprintf(c, "ERR %v\n", err)
}

func (d *Daemon) toggle() error {
	switch d.coord.Status() {
	case pipeline.Idle:
		return d.coord.Start(d.ctx, meeting.General)
	case pipeline.Recording, pipeline.Paused:
		return d.coord.Stop(d.ctx)
	}
	return fmt.Errorf("%w: summary in progress", pipeline.ErrInvalidTransition)
}

func (d *Daemon) eventsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(bus.EventsPath, d.serveEvents)
	return mux
}

// serveEvents streams the current snapshot followed by every change until
// the client goes away or the daemon stops.
func (d *Daemon) serveEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Events upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	snaps, unsubscribe := d.coord.Subscribe()
	defer unsubscribe()

	// the read side only watches for the client closing
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(d.coord.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				log.Printf("Events write failed: %v", err)
				return
			}
		case <-gone:
			return
		case <-d.ctx.Done():
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-r.Context().Done():
			return
		}
	}
}
