package statusservice

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// WsConn is interface for websocket handling in status service
type WsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	WriteJSON(v interface{}) error
}

// WSConnKeeper keeps subscribed connections by document ID.
// A client subscribes by sending the document ID as a text message
type WSConnKeeper struct {
	idConnectionMap map[string]map[WsConn]struct{}
	connectionIDMap map[WsConn]string
	writeLocks      map[WsConn]*sync.Mutex
	mapLock         *sync.Mutex
	timeOut         time.Duration
}

// NewWSConnKeeper creates manager, a connection silent for longer than timeOut is closed
func NewWSConnKeeper(timeOut time.Duration) *WSConnKeeper {
	res := &WSConnKeeper{}
	res.idConnectionMap = make(map[string]map[WsConn]struct{})
	res.connectionIDMap = make(map[WsConn]string)
	res.writeLocks = make(map[WsConn]*sync.Mutex)
	res.mapLock = &sync.Mutex{}
	res.timeOut = timeOut
	if res.timeOut <= 0 {
		res.timeOut = time.Minute * 30
	}
	return res
}

// HandleConnection loops until connection active and save connection with provided ID as key
func (kp *WSConnKeeper) HandleConnection(conn WsConn) error {
	defer kp.deleteConnection(conn)
	defer conn.Close()
	readCh := make(chan string)
	go func() {
		defer close(readCh)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				goapp.Log.Debug().Err(err).Msg("read ended")
				return
			}
			msg := strings.TrimSpace(string(message))
			goapp.Log.Debug().Str("msg", goapp.Sanitize(msg)).Msg("got msg")
			if msg != "" && len(msg) <= 100 {
				readCh <- msg
			} else {
				time.Sleep(20 * time.Millisecond)
			}
		}
	}()

	ta := time.After(kp.timeOut)
loop:
	for {
		select {
		case <-ta:
			goapp.Log.Debug().Msg("conn timeouted")
			break loop
		case msg, ok := <-readCh:
			if !ok {
				break loop
			}
			kp.saveConnection(conn, msg)
			ta = time.After(kp.timeOut)
		}
	}
	goapp.Log.Debug().Msg("handleConnection finish")
	return nil
}

// Broadcast writes v to all connections subscribed to id, returns the number of successful writes
func (kp *WSConnKeeper) Broadcast(id string, v interface{}) (int, error) {
	conns := kp.getConnections(id)
	res := 0
	var lastErr error
	for _, c := range conns {
		if err := c.write(v); err != nil {
			goapp.Log.Warn().Err(err).Str("ID", id).Msg("can't write to websocket")
			lastErr = err
			continue
		}
		res++
	}
	if res == 0 && lastErr != nil {
		return 0, fmt.Errorf("can't write to websocket: %w", lastErr)
	}
	return res, nil
}

type lockedConn struct {
	conn WsConn
	lock *sync.Mutex
}

func (c lockedConn) write(v interface{}) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.conn.WriteJSON(v)
}

func (kp *WSConnKeeper) deleteConnection(conn WsConn) {
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	kp.deleteConnectionNoSync(conn)
	delete(kp.writeLocks, conn)
}

func (kp *WSConnKeeper) deleteConnectionNoSync(conn WsConn) {
	id, found := kp.connectionIDMap[conn]
	if found {
		conns, found := kp.idConnectionMap[id]
		if found {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(kp.idConnectionMap, id)
			}
		}
	}
	delete(kp.connectionIDMap, conn)
}

func (kp *WSConnKeeper) saveConnection(conn WsConn, id string) {
	goapp.Log.Info().Str("ID", id).Msg("subscribe")
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	kp.deleteConnectionNoSync(conn)
	kp.connectionIDMap[conn] = id
	if _, found := kp.writeLocks[conn]; !found {
		kp.writeLocks[conn] = &sync.Mutex{}
	}
	conns, found := kp.idConnectionMap[id]
	if !found {
		conns = map[WsConn]struct{}{}
		kp.idConnectionMap[id] = conns
	}
	conns[conn] = struct{}{}
	goapp.Log.Debug().Int("active", len(kp.connectionIDMap)).Msg("subscribed")
}

func (kp *WSConnKeeper) getConnections(id string) []lockedConn {
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	cm := kp.idConnectionMap[id]
	res := make([]lockedConn, 0, len(cm))
	for c := range cm {
		res = append(res, lockedConn{conn: c, lock: kp.writeLocks[c]})
	}
	return res
}

// Count returns the number of connections subscribed to id
func (kp *WSConnKeeper) Count(id string) int {
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	return len(kp.idConnectionMap[id])
}
