package secfs

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/robotalks/nrf91.go/pkg/at"
)

// fakeModem emulates the AT%CMNG credential store of a modem.
type fakeModem struct {
	lock     sync.Mutex
	creds    map[CredType]map[SecTag]string
	cme      int  // when set, every AT%CMNG fails with this code
	noCMEE   bool // AT+CMEE fails
	commands []string
	dials    int
	open     int
}

func newFakeModem() *fakeModem {
	return &fakeModem{creds: make(map[CredType]map[SecTag]string)}
}

func (m *fakeModem) put(typ CredType, tag SecTag, content string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.creds[typ] == nil {
		m.creds[typ] = make(map[SecTag]string)
	}
	m.creds[typ][tag] = content
}

func (m *fakeModem) get(typ CredType, tag SecTag) (string, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	content, ok := m.creds[typ][tag]
	return content, ok
}

func (m *fakeModem) Dial(context.Context) (at.Socket, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.dials++
	m.open++
	return &fakeSocket{modem: m}, nil
}

func (m *fakeModem) execute(cmd string) string {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.commands = append(m.commands, cmd)
	if strings.HasPrefix(cmd, "AT+CMEE=") {
		if m.noCMEE {
			return "ERROR\r\n"
		}
		return "OK\r\n"
	}
	if !strings.HasPrefix(cmd, cmngPrefix) {
		return "ERROR\r\n"
	}
	if m.cme != 0 {
		return fmt.Sprintf("+CME ERROR: %d\r\n", m.cme)
	}
	params := at.SplitParams(strings.TrimPrefix(cmd, cmngPrefix))
	for len(params) < 4 {
		params = append(params, "")
	}
	op, _ := strconv.Atoi(params[0])
	typ := Root
	if params[2] != "" {
		n, _ := strconv.Atoi(params[2])
		typ = CredType(n)
	}
	var tag SecTag
	if params[1] != "" {
		n, _ := strconv.ParseUint(params[1], 10, 32)
		tag = SecTag(n)
	}
	switch opcode(op) {
	case opList:
		var tags []int
		for t := range m.creds[typ] {
			tags = append(tags, int(t))
		}
		sort.Ints(tags)
		var b strings.Builder
		for _, t := range tags {
			fmt.Fprintf(&b, "%%CMNG: %d,%d,\"0123456789ABCDEF\"\r\n", t, typ)
		}
		b.WriteString("OK\r\n")
		return b.String()
	case opRead:
		if typ == ClientKey {
			return "+CME ERROR: 514\r\n"
		}
		content, ok := m.creds[typ][tag]
		if !ok {
			return "+CME ERROR: 513\r\n"
		}
		return fmt.Sprintf("%%CMNG: %d,%d,\"0123456789ABCDEF\",\"%s\"\r\nOK\r\n", tag, typ, content)
	case opWrite:
		if m.creds[typ] == nil {
			m.creds[typ] = make(map[SecTag]string)
		}
		m.creds[typ][tag] = at.Unquote(params[3])
		return "OK\r\n"
	case opDelete:
		if _, ok := m.creds[typ][tag]; !ok {
			return "+CME ERROR: 513\r\n"
		}
		delete(m.creds[typ], tag)
		return "OK\r\n"
	}
	return "ERROR\r\n"
}

type fakeSocket struct {
	modem  *fakeModem
	resp   string
	closed bool
}

func (s *fakeSocket) Send(cmd string) error {
	s.resp = s.modem.execute(cmd)
	return nil
}

func (s *fakeSocket) Recv(max int) ([]byte, error) {
	resp := s.resp
	if len(resp) > max {
		resp = resp[:max]
	}
	s.resp = ""
	return []byte(resp), nil
}

func (s *fakeSocket) Close() error {
	if !s.closed {
		s.closed = true
		s.modem.lock.Lock()
		s.modem.open--
		s.modem.lock.Unlock()
	}
	return nil
}
