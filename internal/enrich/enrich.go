// Package enrich 从条目启动参数中提取主机名并做解析核实，
// 为升级载荷补充网络证据。解析失败不是错误，只是证据为空。
package enrich

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/miekg/dns"

	"baize/internal/escalate"
	"baize/internal/models"
)

const (
	queryTimeout = 3 * time.Second
	// 提取主机名上限；启动参数偶见长脚本，避免批量外发查询
	maxHosts = 4
)

var fallbackUpstreams = []string{"8.8.8.8:53", "1.1.1.1:53"}

// hostPattern 匹配裸域名（至少一个点，字母开头的顶级段）。
var hostPattern = regexp.MustCompile(`\b([a-zA-Z0-9][a-zA-Z0-9-]*\.)+[a-zA-Z]{2,}\b`)

// Resolver 实现 escalate.Enricher，用系统配置的上游做 A 记录查询。
type Resolver struct {
	client    *dns.Client
	upstreams []string
}

// NewResolver 读取 /etc/resolv.conf 作为上游；读取失败回退公共 DNS。
func NewResolver() *Resolver {
	upstreams := fallbackUpstreams
	if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(conf.Servers) > 0 {
		upstreams = nil
		for _, s := range conf.Servers {
			upstreams = append(upstreams, s+":"+conf.Port)
		}
		upstreams = append(upstreams, fallbackUpstreams...)
	}
	return &Resolver{
		client:    &dns.Client{Timeout: queryTimeout},
		upstreams: upstreams,
	}
}

// Enrich 提取条目参数与环境里的主机名并逐个解析。
func (r *Resolver) Enrich(ctx context.Context, item *models.PersistenceItem) []escalate.HostEvidence {
	hosts := ExtractHosts(item)
	if len(hosts) == 0 {
		return nil
	}
	var evidence []escalate.HostEvidence
	for _, host := range hosts {
		if ctx.Err() != nil {
			break
		}
		addrs := r.lookupA(ctx, host)
		evidence = append(evidence, escalate.HostEvidence{
			Host:      host,
			Resolved:  len(addrs) > 0,
			Addresses: addrs,
		})
	}
	return evidence
}

// lookupA 逐个上游尝试 A 查询，首个有答案的胜出。
func (r *Resolver) lookupA(ctx context.Context, host string) []string {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)
	m.RecursionDesired = true
	for _, upstream := range r.upstreams {
		reply, _, err := r.client.ExchangeContext(ctx, m, upstream)
		if err != nil || reply == nil {
			continue
		}
		var addrs []string
		for _, rr := range reply.Answer {
			if a, ok := rr.(*dns.A); ok {
				addrs = append(addrs, a.A.String())
			}
		}
		if len(addrs) > 0 {
			return addrs
		}
	}
	return nil
}

// ExtractHosts 从启动参数和环境变量值中提取主机名，去重、保持出现顺序。
// URL 取其 Host 部分；其余文本做裸域名匹配。localhost 与 .local 不算证据。
func ExtractHosts(item *models.PersistenceItem) []string {
	var texts []string
	texts = append(texts, item.Launch.Arguments...)
	for _, v := range item.Launch.Environment {
		texts = append(texts, v)
	}

	seen := make(map[string]bool)
	var hosts []string
	add := func(h string) {
		h = strings.ToLower(strings.TrimSuffix(h, "."))
		if h == "" || seen[h] || skipHost(h) {
			return
		}
		seen[h] = true
		if len(hosts) < maxHosts {
			hosts = append(hosts, h)
		}
	}

	for _, text := range texts {
		if u, err := url.Parse(text); err == nil && u.Host != "" && u.Scheme != "" {
			add(u.Hostname())
			continue
		}
		for _, m := range hostPattern.FindAllString(text, -1) {
			add(m)
		}
	}
	return hosts
}

// skipHost 过滤明显不是外联目标的匹配：本机名、文件扩展名误匹配等。
func skipHost(h string) bool {
	if h == "localhost" || strings.HasSuffix(h, ".local") || strings.HasSuffix(h, ".localdomain") {
		return true
	}
	// plist 标识与文件路径常见的伪域名后缀
	for _, ext := range []string{".sh", ".py", ".rb", ".pl", ".js", ".plist", ".app", ".dylib", ".framework"} {
		if strings.HasSuffix(h, ext) {
			return true
		}
	}
	return false
}

var _ escalate.Enricher = (*Resolver)(nil)
