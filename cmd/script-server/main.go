// Command script-server is a stand-in game server for local testing. It plays a script of
// protocol messages to each client that connects and logs the choices the client sends back.
//
// Script lines are raw JSON messages. Blank lines and lines starting with '#' are skipped.
// A line reading "await" pauses the script until the client sends its next choice.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cardengine/table-client/internal/protocol"
)

var (
	addr       = flag.String("addr", ":8080", "listen address")
	scriptPath = flag.String("script", "", "path to the message script")
	token      = flag.String("token", "", "bearer token clients must present")
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local testing only
	},
}

const awaitLine = "await"

func loadScript(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for n := 1; scanner.Scan(); n++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if string(line) != awaitLine {
			if _, err := protocol.Decode(line); err != nil {
				return nil, fmt.Errorf("script line %d: %w", n, err)
			}
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return lines, nil
}

type player struct {
	id      int64
	conn    *websocket.Conn
	send    chan []byte
	choices chan protocol.Envelope
	logger  *zap.Logger
}

func (p *player) readPump() {
	defer func() {
		close(p.choices)
		p.conn.Close()
	}()

	for {
		_, message, err := p.conn.ReadMessage()
		if err != nil {
			p.logger.Info("client disconnected", zap.Error(err))
			return
		}
		for _, frame := range protocol.SplitFrames(message) {
			env, err := decodeEnvelope(frame)
			if err != nil {
				p.logger.Warn("error decoding client message", zap.Error(err))
				continue
			}
			p.logger.Info("client message",
				zap.String("message_type", env.Type),
				zap.ByteString("data", env.Data),
			)
			if env.Type != protocol.TypeChoice {
				continue
			}
			select {
			case p.choices <- env:
			default:
				// nobody is awaiting
			}
		}
	}
}

func (p *player) writePump() {
	defer p.conn.Close()

	for message := range p.send {
		if err := p.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}

// play feeds the script to the player, pausing on await lines.
func (p *player) play(script [][]byte) {
	defer close(p.send)

	for i, line := range script {
		if string(line) == awaitLine {
			env, ok := <-p.choices
			if !ok {
				return
			}
			p.logger.Debug("script resumed", zap.Int("line", i), zap.ByteString("choice", env.Data))
			continue
		}
		p.send <- line
	}
	p.logger.Info("script finished", zap.Int("lines", len(script)))
}

func decodeEnvelope(raw []byte) (protocol.Envelope, error) {
	var env protocol.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, err
	}
	return env, nil
}

func serveWS(script [][]byte, seq *atomic.Int64, logger *zap.Logger, w http.ResponseWriter, r *http.Request) {
	if *token != "" && r.Header.Get("Authorization") != "Bearer "+*token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	id := seq.Add(1)
	p := &player{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, 256),
		choices: make(chan protocol.Envelope, 16),
		logger:  logger.With(zap.Int64("connection", id)),
	}
	p.logger.Info("client connected", zap.String("remote_addr", r.RemoteAddr))

	go p.writePump()
	go p.readPump()
	go p.play(script)
}

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *scriptPath == "" {
		logger.Fatal("a script is required (-script)")
	}
	script, err := loadScript(*scriptPath)
	if err != nil {
		logger.Fatal("failed to load script", zap.Error(err))
	}

	var seq atomic.Int64
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWS(script, &seq, logger, w, r)
	})

	logger.Info("script server starting",
		zap.String("address", *addr),
		zap.String("script", *scriptPath),
		zap.Int("lines", len(script)),
	)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		logger.Fatal("listen failed", zap.Error(err))
	}
}
