package handler

import (
	"net/http"

	"holderscan/internal/logic/balance"
	"holderscan/internal/logic/holder"
	"holderscan/internal/svc"
	"holderscan/internal/types"

	"github.com/zeromicro/go-zero/rest/httpx"
)

// TokenHoldersHandler 计算代币持有人
func TokenHoldersHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.TokenHoldersReq
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := holder.NewHolderLogic(r.Context(), svcCtx)
		resp, err := l.GetTokenHolders(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}

// BalanceHandler 查询原生代币余额
func BalanceHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.BalanceReq
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := balance.NewBalanceLogic(r.Context(), svcCtx)
		resp, err := l.GetBalance(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
