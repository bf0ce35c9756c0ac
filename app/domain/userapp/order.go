package userapp

import (
	"github.com/jcpaschoal/gymhub/business/domain/userbus"
)

var orderByFields = map[string]string{
	"user_id": userbus.OrderByID,
	"name":    userbus.OrderByName,
	"email":   userbus.OrderByEmail,
	"blocked": userbus.OrderByBlocked,
}
