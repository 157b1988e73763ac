package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"voxeldisplay.ai/internal/protocol"
	"voxeldisplay.ai/internal/sim/rotation"
)

func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "bot", "client name")
		pos    = flag.String("pos", "0,0,0", "display position x,y,z")
		rot    = flag.String("rotation", "", `rotation to set, as JSON ("X_90" or {"axis":"x","degrees":90}); empty to only watch`)
		axis   = flag.String("axis", "", "rotation axis x|y|z (with -turns, instead of -rotation)")
		turns  = flag.Int("turns", 0, "quarter-turns (or degrees in multiples of 90) about -axis")
		binary = flag.Bool("binary", false, "request binary ROTATION frames")
		spin   = flag.Duration("spin", 0, "if set, advance the rotation a quarter-turn at this interval")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	p, err := parsePos(*pos)
	if err != nil {
		logger.Fatalf("pos: %v", err)
	}
	initial, start, err := pickRotation(*rot, *axis, *turns)
	if err != nil {
		logger.Fatalf("rotation: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Capabilities:    protocol.HelloCapabilities{BinaryFrames: *binary, MaxQueue: 8},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	// After this point the spinner is the only writer.
	if initial != nil {
		if err := sendSet(conn, p, initial, "init"); err != nil {
			logger.Fatalf("send SET_ROTATION: %v", err)
		}
	}
	if *spin > 0 {
		go func() {
			cur := start
			for i := 1; ; i++ {
				time.Sleep(*spin)
				cur = cur.Next()
				b, _ := rotation.EncodeJSON(cur)
				if err := sendSet(conn, p, b, fmt.Sprintf("spin_%d", i)); err != nil {
					return
				}
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind == websocket.BinaryMessage {
			fp, s, err := protocol.DecodeRotationFrame(msg)
			if err != nil {
				logger.Printf("bad frame: %v", err)
				continue
			}
			logger.Printf("ROTATION pos=%v rotation=%s", fp, s)
			continue
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME session=%s displays=%d", w.SessionID, len(w.Displays))
		case protocol.TypeRotation:
			var r protocol.RotationMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			logger.Printf("ROTATION pos=%v rotation=%s by=%s", r.Pos, r.Rotation, r.By)
		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR req=%s code=%s %s", e.ReqID, e.Code, e.Message)
		}
	}
}

func sendSet(conn *websocket.Conn, pos [3]int, rot json.RawMessage, reqID string) error {
	return conn.WriteJSON(protocol.SetRotationMsg{
		Type:            protocol.TypeSetRotation,
		ProtocolVersion: protocol.Version,
		ReqID:           reqID,
		Pos:             pos,
		Rotation:        rot,
	})
}

// pickRotation turns the flags into the first SET_ROTATION payload and the
// state a spinner starts from. -axis wins over -rotation. A -rotation the
// local codec rejects is still sent, so the server's ERROR can be watched.
func pickRotation(rot, axis string, turns int) (json.RawMessage, rotation.State, error) {
	if axis != "" {
		a, ok := rotation.ParseAxis(axis)
		if !ok {
			return nil, 0, fmt.Errorf("unknown axis %q", axis)
		}
		s, _ := rotation.Lookup(a, rotation.AmountFromQuarterTurns(turns))
		b, err := rotation.EncodeJSON(s)
		return b, s, err
	}
	if rot == "" {
		return nil, rotation.X0, nil
	}
	s, err := rotation.DecodeJSON([]byte(rot))
	if err != nil {
		s = rotation.X0
	}
	return json.RawMessage(rot), s, nil
}

func parsePos(s string) ([3]int, error) {
	var p [3]int
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return p, fmt.Errorf("want x,y,z, got %q", s)
	}
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return p, err
		}
		p[i] = v
	}
	return p, nil
}
