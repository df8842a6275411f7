package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"sampsim/internal/logger"
	"sampsim/internal/utils"
)

// 文档注释：来源地址白名单
// 背景：服务部署在反向代理之后时，只允许代理与指定调试地址直接访问；其余请求返回 403。
// 约束：条目可以是单个地址或 CIDR（v4/v6）；realIPHeader 非空时取该头的首个有效地址，否则取 RemoteAddr。
type AllowList struct {
	prefixes     []netip.Prefix
	realIPHeader string
}

// NewAllowList：解析逗号分隔的地址/CIDR 列表，无法解析的条目被忽略
func NewAllowList(entries, realIPHeader string) *AllowList {
	a := &AllowList{realIPHeader: strings.TrimSpace(realIPHeader)}
	for _, e := range strings.Split(entries, ",") {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			a.prefixes = append(a.prefixes, p.Masked())
			continue
		}
		if ip, err := netip.ParseAddr(e); err == nil {
			a.prefixes = append(a.prefixes, netip.PrefixFrom(ip, ip.BitLen()))
			continue
		}
		logger.L().Warn("allowlist_entry_invalid", "entry", e)
	}
	return a
}

func (a *AllowList) allowed(ip netip.Addr) bool {
	ip = ip.Unmap()
	for _, p := range a.prefixes {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

func (a *AllowList) clientIP(r *http.Request) (netip.Addr, bool) {
	if a.realIPHeader != "" {
		if raw := r.Header.Get(a.realIPHeader); raw != "" {
			first, _, _ := strings.Cut(raw, ",")
			if ip, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
				return ip, true
			}
		}
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	ip, err := netip.ParseAddr(host)
	return ip, err == nil
}

// Guard：不在白名单内的请求返回 403
func (a *AllowList) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, ok := a.clientIP(r)
		if !ok || !a.allowed(ip) {
			logger.L().Debug("allowlist_block", "remote", r.RemoteAddr)
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WrapAllowList：ALLOWLIST_ENABLED=true 时按 ALLOWLIST（逗号分隔）过滤来源地址；
// ALLOWLIST_LOCAL=true 额外放行回环地址，ALLOWLIST_REAL_IP_HEADER 指定上游真实地址头
func WrapAllowList(next http.Handler) http.Handler {
	if !utils.EnvBool("ALLOWLIST_ENABLED", false) {
		return next
	}
	entries := utils.EnvString("ALLOWLIST", "")
	if utils.EnvBool("ALLOWLIST_LOCAL", false) {
		entries += ",127.0.0.1,::1"
	}
	a := NewAllowList(entries, utils.EnvString("ALLOWLIST_REAL_IP_HEADER", ""))
	logger.L().Info("allowlist_enabled", "entries", len(a.prefixes))
	return a.Guard(next)
}
