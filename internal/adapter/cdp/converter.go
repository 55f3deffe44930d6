package cdp

import (
	"math"
	"time"

	"seatwatch/pkg/model"

	"github.com/mafredri/cdp/protocol/network"
)

// ToCookieRecord 将 CDP Cookie 转换为持久化模型，会话 Cookie 不带过期时间
func ToCookieRecord(c network.Cookie) model.CookieRecord {
	rec := model.CookieRecord{
		Name:   c.Name,
		Value:  c.Value,
		Domain: c.Domain,
		Path:   c.Path,
		Secure: c.Secure,
	}
	if !c.Session && c.Expires > 0 {
		sec, frac := math.Modf(c.Expires)
		exp := time.Unix(int64(sec), int64(frac*1e9)).UTC()
		rec.Expiry = &exp
	}
	return rec
}

// ToCookieRecords 批量转换并保持顺序
func ToCookieRecords(cs []network.Cookie) []model.CookieRecord {
	out := make([]model.CookieRecord, 0, len(cs))
	for _, c := range cs {
		out = append(out, ToCookieRecord(c))
	}
	return out
}

// ToSetCookieArgs 将持久化模型转换为 Network.setCookie 参数
func ToSetCookieArgs(rec model.CookieRecord) *network.SetCookieArgs {
	args := network.NewSetCookieArgs(rec.Name, rec.Value).
		SetDomain(rec.Domain).
		SetSecure(rec.Secure)
	if rec.Path != "" {
		args.SetPath(rec.Path)
	}
	if rec.Expiry != nil {
		sec := float64(rec.Expiry.UnixNano()) / 1e9
		args.SetExpires(network.TimeSinceEpoch(sec))
	}
	return args
}
