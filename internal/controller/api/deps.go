package api

import (
	"lotto-server/internal/provider"
	"lotto-server/internal/service"
)

// 随机源与时间锁是运行期单例，由 main 启动时通过 InitServices 注入；
// 其余服务无状态，以包级构造器变量引用，便于测试替换。
var (
	gameSvc service.GameService
	drawSvc service.DrawService

	newTicketService = service.NewTicketService
	newClaimService  = service.NewClaimService
	newSealService   = service.NewSealService
)

// InitServices 完成控制器层的服务装配
func InitServices(rng provider.RandomnessProvider, lock provider.TimeLockProvider) {
	gameSvc = service.NewGameService(rng)
	drawSvc = service.NewDrawService(lock)
}
