package utils

import (
	"github.com/kataras/iris/v12"
)

// Every endpoint replies with the same envelope:
// { success, data?, message?, errors? }.

func SendData(ctx iris.Context, data interface{}) {
	ctx.JSON(iris.Map{"success": true, "data": data})
}

func SendMessage(ctx iris.Context, message string, data interface{}) {
	payload := iris.Map{"success": true, "message": message}
	if data != nil {
		payload["data"] = data
	}
	ctx.JSON(payload)
}

func SendError(ctx iris.Context, status int, message string) {
	ctx.StatusCode(status)
	ctx.JSON(iris.Map{"success": false, "message": message})
}

func SendErrors(ctx iris.Context, status int, message string, errs []string) {
	ctx.StatusCode(status)
	ctx.JSON(iris.Map{"success": false, "message": message, "errors": errs})
}

type PageMeta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"perPage"`
	Total   int64 `json:"total"`
}

func SendPage(ctx iris.Context, data interface{}, page, perPage int, total int64) {
	ctx.JSON(iris.Map{
		"success": true,
		"data":    data,
		"meta":    PageMeta{Page: page, PerPage: perPage, Total: total},
	})
}
