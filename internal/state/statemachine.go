package state

import "fmt"

// State 彩票局状态
const (
	StateWaiting  = "waiting"  // 等待中(暂停/未开售)
	StateActive   = "active"   // 售票中(createGame~endGame)
	StateDrawing  = "drawing"  // 待开奖(已发出随机种子请求)
	StateSealed   = "sealed"   // 已封存(延迟揭晓开启时)
	StateFinished = "finished" // 已结束(已结算，可领奖)
)

// Event 彩票局事件
const (
	EvtPause       = "pause"        // 管理员紧急暂停(仅限未售出任何票)
	EvtResume      = "resume"       // 恢复售票
	EvtGameEnd     = "game_end"     // 截止售票(需到达 end_time)
	EvtDrawSealed  = "draw_sealed"  // 开奖结果已封存，等待解锁
	EvtDrawSettled = "draw_settled" // 开奖结果已直接结算(未开启延迟揭晓)
	EvtSealReveal  = "seal_reveal"  // 封存结果已揭晓并结算
)

// NextState 根据当前状态与事件计算下一个状态，非法转换报错。
// 除 pause(active->waiting) 外状态只向前推进，不可回退。
func NextState(cur, evt string) (string, error) {
	switch cur {
	case StateWaiting:
		if evt == EvtResume {
			return StateActive, nil
		}
	case StateActive:
		if evt == EvtPause {
			return StateWaiting, nil
		}
		if evt == EvtGameEnd {
			return StateDrawing, nil
		}
	case StateDrawing:
		if evt == EvtDrawSealed {
			return StateSealed, nil
		}
		if evt == EvtDrawSettled {
			return StateFinished, nil
		}
	case StateSealed:
		if evt == EvtSealReveal {
			return StateFinished, nil
		}
	}
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", cur, evt)
}
