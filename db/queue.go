package db

type WriteTask struct {
	Key   []byte
	Value []byte
	Op    WriteOp // 可以是 "Set" or "Delete"
}

type WriteOp int

const (
	OpSet WriteOp = iota
	OpDelete
)

func setTask(key string, value []byte) WriteTask {
	return WriteTask{Key: []byte(key), Value: value, Op: OpSet}
}

func deleteTask(key string) WriteTask {
	return WriteTask{Key: []byte(key), Op: OpDelete}
}
