package engine

// Heap 后端共享堆，runtime 只用到这三个调用。
type Heap interface {
	// Malloc 取 n 字节原始存储，失败返回 false。
	Malloc(n uint32) ([]byte, bool)
	// Free 归还 Malloc 得到的块。
	Free(b []byte)
	// DumpStrings 诊断 dump，需要的同步由实现自己负责。
	DumpStrings()
}
