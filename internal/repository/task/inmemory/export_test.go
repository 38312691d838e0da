package inmemory

func (s *TaskStorage) LockCount() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.locks)
}
