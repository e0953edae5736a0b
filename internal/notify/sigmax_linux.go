package notify

// 含实时信号。
const maxSignal = 64
