package builtin

import (
	"context"
	"fmt"
	"math"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"yqhp/stepflow/internal/plugin"
)

const (
	defaultPingCount    = 4
	defaultPingTimeout  = 2.0
	defaultPingInterval = 0.2

	// protocolICMP 是 IANA 分配的 ICMPv4 协议号
	protocolICMP = 1
)

// ICMPCheck pings a host and reports packet loss and round-trip times.
// It uses an unprivileged datagram socket, which on Linux requires the
// net.ipv4.ping_group_range sysctl to include the runner's group.
type ICMPCheck struct{}

// NewICMPCheck creates the check_icmp_connection plugin.
func NewICMPCheck() *ICMPCheck { return &ICMPCheck{} }

func (p *ICMPCheck) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "check_icmp_connection",
		Version:     "1.0.0",
		Description: "Ping a host and report packet loss and latency",
		Category:    "network",
		Tags:        []string{"icmp", "ping", "connectivity"},
	}
}

func (p *ICMPCheck) Schema() plugin.Schema {
	return plugin.Schema{
		"host":      {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "target host"},
		"count":     {Types: []plugin.ValueType{plugin.TypeInt}, Description: "number of echo requests (default 4)"},
		"timeout":   {Types: []plugin.ValueType{plugin.TypeInt, plugin.TypeFloat}, Description: "per-reply timeout in seconds"},
		"interval":  {Types: []plugin.ValueType{plugin.TypeInt, plugin.TypeFloat}, Description: "delay between requests in seconds"},
		"fail_fast": {Types: []plugin.ValueType{plugin.TypeBool}, Description: "treat total loss as an error (default true)"},
	}
}

func (p *ICMPCheck) Execute(ctx context.Context, req *plugin.Request) (any, error) {
	host, err := plugin.RequiredParam[string](req.Params, "host")
	if err != nil {
		return nil, err
	}
	count := plugin.OptionalInt(req.Params, "count", defaultPingCount)
	if count <= 0 {
		count = defaultPingCount
	}
	timeout := seconds(req.Params, "timeout", defaultPingTimeout)
	interval := seconds(req.Params, "interval", defaultPingInterval)

	addr, err := net.ResolveIPAddr("ip4", host)
	if err != nil {
		return p.degrade(req, host, count, 0, nil, fmt.Errorf("resolving %s: %w", host, err))
	}

	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return p.degrade(req, host, count, 0, nil, fmt.Errorf("opening icmp socket: %w", err))
	}
	defer conn.Close()

	dst := &net.UDPAddr{IP: addr.IP}
	id := os.Getpid() & 0xffff

	var rtts []time.Duration
	transmitted := 0
	for seq := 1; seq <= count; seq++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seq > 1 {
			time.Sleep(interval)
		}

		rtt, err := p.pingOnce(conn, dst, id, seq, timeout)
		transmitted++
		if err != nil {
			req.Logger.Debug("ping lost", zap.String("host", host), zap.Int("seq", seq), zap.Error(err))
			continue
		}
		rtts = append(rtts, rtt)
	}

	received := len(rtts)
	if received == 0 {
		return p.degrade(req, host, count, transmitted, rtts,
			fmt.Errorf("all %d echo requests to %s lost", transmitted, host))
	}
	return p.summarize(host, count, transmitted, rtts, "success", ""), nil
}

// pingOnce sends one echo request and waits for the matching reply.
func (p *ICMPCheck) pingOnce(conn *icmp.PacketConn, dst net.Addr, id, seq int, timeout time.Duration) (time.Duration, error) {
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: []byte("stepflow ping")},
	}
	packet, err := msg.Marshal(nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	if _, err := conn.WriteTo(packet, dst); err != nil {
		return 0, err
	}

	reply := make([]byte, 1500)
	deadline := start.Add(timeout)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return 0, err
		}
		n, _, err := conn.ReadFrom(reply)
		if err != nil {
			return 0, err
		}
		parsed, err := icmp.ParseMessage(protocolICMP, reply[:n])
		if err != nil {
			continue
		}
		echo, ok := parsed.Body.(*icmp.Echo)
		if parsed.Type != ipv4.ICMPTypeEchoReply || !ok || echo.Seq != seq {
			// 其他流量的回包，继续等自己的
			continue
		}
		return time.Since(start), nil
	}
}

func (p *ICMPCheck) degrade(req *plugin.Request, host string, count, transmitted int, rtts []time.Duration, cause error) (any, error) {
	req.Logger.Warn("icmp check failed", zap.String("host", host), zap.Error(cause))
	if failFast(req.Params) {
		return nil, cause
	}
	return p.summarize(host, count, transmitted, rtts, "failure", cause.Error()), nil
}

func (p *ICMPCheck) summarize(host string, count, transmitted int, rtts []time.Duration, status, errMsg string) map[string]any {
	received := len(rtts)
	loss := 100.0
	successRate := 0.0
	if transmitted > 0 {
		loss = float64(transmitted-received) / float64(transmitted) * 100
		successRate = float64(received) / float64(transmitted)
	}

	out := map[string]any{
		"host":         host,
		"count":        count,
		"transmitted":  transmitted,
		"received":     received,
		"packet_loss":  math.Round(loss*100) / 100,
		"success_rate": math.Round(successRate*10000) / 10000,
		"status":       status,
	}
	if received > 0 {
		minRTT, maxRTT, total := rtts[0], rtts[0], time.Duration(0)
		for _, rtt := range rtts {
			if rtt < minRTT {
				minRTT = rtt
			}
			if rtt > maxRTT {
				maxRTT = rtt
			}
			total += rtt
		}
		out["rtt_min_ms"] = roundMS(minRTT)
		out["rtt_avg_ms"] = roundMS(total / time.Duration(received))
		out["rtt_max_ms"] = roundMS(maxRTT)
	}
	if errMsg != "" {
		out["error"] = errMsg
	}
	return out
}

func roundMS(d time.Duration) float64 {
	return math.Round(float64(d.Microseconds())/10) / 100
}
