package userdb

import (
	"bytes"
	"strings"

	"github.com/jcpaschoal/gymhub/business/domain/userbus"
)

func applyFilter(filter userbus.QueryFilter, data map[string]any, buf *bytes.Buffer) {
	var wc []string

	if filter.ID != nil {
		data["user_id"] = filter.ID.String()
		wc = append(wc, "user_id = :user_id")
	}

	if filter.Name != nil {
		data["name"] = "%" + *filter.Name + "%"
		wc = append(wc, "name LIKE :name")
	}

	if filter.Email != nil {
		data["email"] = filter.Email.Address
		wc = append(wc, "email = :email")
	}

	if filter.Blocked != nil {
		data["blocked"] = *filter.Blocked
		wc = append(wc, "blocked = :blocked")
	}

	if len(wc) > 0 {
		buf.WriteString(" WHERE ")
		buf.WriteString(strings.Join(wc, " AND "))
	}
}
