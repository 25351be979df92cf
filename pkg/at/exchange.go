package at

import (
	"context"
	"fmt"

	"github.com/golang/glog"
)

// MaxResponse is the largest response a single Recv delivers.
const MaxResponse = 4096

// Exchange sends the commands one by one on a single socket and returns
// the responses. It stops on the first response without OK.
func Exchange(ctx context.Context, d Dialer, cmds ...string) ([]string, error) {
	s, err := d.Dial(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	resps := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return resps, err
		}
		glog.V(2).Infof("AT> %s", cmd)
		if err := s.Send(cmd); err != nil {
			return resps, fmt.Errorf("send %q: %w", cmd, err)
		}
		buf, err := s.Recv(MaxResponse)
		if err != nil {
			return resps, fmt.Errorf("recv %q: %w", cmd, err)
		}
		resp := string(buf)
		glog.V(2).Infof("AT< %q", resp)
		resps = append(resps, resp)
		if code, ok := ParseCMEError(resp); ok {
			return resps, fmt.Errorf("%s: %w", cmd, &CMEError{Code: code})
		}
		if !HasOK(resp) {
			return resps, fmt.Errorf("%s: unexpected response %q", cmd, resp)
		}
	}
	return resps, nil
}
